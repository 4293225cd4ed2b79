package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/partdoc/kiosk/internal/directory"
	"github.com/partdoc/kiosk/internal/locations"
	"github.com/partdoc/kiosk/internal/scan"
)

const maxBodyBytes = 1 << 20

// PartLocationsResponse is the body of GET /api/v1/part-locations.
type PartLocationsResponse struct {
	Entries []directory.LocationRecord `json:"entries"`
}

// GetPartLocations handles GET /api/v1/part-locations?limit=N.
func (h *Handler) GetPartLocations(c *gin.Context) {
	limit := locations.ClampLimit(c.Query("limit"))
	c.JSON(http.StatusOK, PartLocationsResponse{Entries: h.locations.List(limit)})
}

// PostScan handles POST /api/v1/scans. A body that is not a JSON object is
// treated as an empty payload.
func (h *Handler) PostScan(c *gin.Context) {
	payload := readObject(c.Request.Body)
	h.Ingest(payload)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "received": payload})
}

// Ingest assigns a scan id and timestamp when payload has none, records
// the location and broadcasts the payload. It returns the number of
// socket clients reached.
func (h *Handler) Ingest(payload map[string]any) int {
	if _, ok := payload["scan_id"]; !ok {
		if _, ok := payload["scanId"]; !ok {
			payload["scan_id"] = uuid.NewString()
		}
	}
	now := h.now().UTC()
	if _, ok := payload["updated_at"]; !ok {
		if _, ok := payload["updatedAt"]; !ok {
			payload["updated_at"] = now.Format(time.RFC3339Nano)
		}
	}

	if ev, ok := scan.Normalize(payload); ok && ev.OrderCode != "" && ev.LocationCode != "" {
		at := directory.ParseTimestamp(ev.UpdatedAt)
		if at.IsZero() {
			at = now
		}
		h.locations.Record(ev.OrderCode, ev.LocationCode, ev.Device(), at)
	}

	delivered := 0
	if h.hub != nil {
		delivered = h.hub.Emit(h.eventName, payload)
		h.metrics.HubClients(h.hub.ClientCount())
	}
	h.metrics.ScanIngested()
	h.log.Info("scan ingested", "scan_id", payload["scan_id"], "event", h.eventName, "delivered", delivered)
	return delivered
}

// SocketEvent is a telemetry record relayed by a kiosk.
type SocketEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// PostSocketEvent handles POST /api/socket-events.
func (h *Handler) PostSocketEvent(c *gin.Context) {
	var ev SocketEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.log.Info("kiosk socket event", "event", ev.Event, "payload", string(ev.Payload))
	c.JSON(http.StatusCreated, gin.H{"logged": true})
}

func readObject(r io.Reader) map[string]any {
	payload := map[string]any{}
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil || len(data) == 0 {
		return payload
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}
