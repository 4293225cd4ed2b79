package server

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string  `json:"status"`
	Uptime   float64 `json:"uptimeSeconds"`
	Clients  int     `json:"clients"`
	Records  int     `json:"records"`
	RSSBytes uint64  `json:"rssBytes,omitempty"`
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Uptime:  h.now().Sub(h.started).Seconds(),
		Records: h.locations.Len(),
	}
	if h.hub != nil {
		resp.Clients = h.hub.ClientCount()
		h.metrics.HubClients(resp.Clients)
	}
	resp.RSSBytes = processRSS()
	c.JSON(http.StatusOK, resp)
}

func processRSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}
