// Package server is the document server's HTTP surface: document lookup
// and download, scan ingest, the bulk part-location read, the Socket.IO
// endpoint and health/metrics.
package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/partdoc/kiosk/internal/docstore"
	"github.com/partdoc/kiosk/internal/hub"
	"github.com/partdoc/kiosk/internal/locations"
	"github.com/partdoc/kiosk/internal/metrics"
)

const defaultEventName = "part_location_updated"

// Options wires the router to its stores.
type Options struct {
	Docs       *docstore.Store
	Locations  *locations.Store
	Hub        *hub.Hub
	Metrics    *metrics.Server
	Gatherer   prometheus.Gatherer
	Token      string
	EventName  string
	SocketPath string

	// Ingest limit per client IP. Zero uses 10/s with a burst of 5.
	IngestRate  rate.Limit
	IngestBurst int

	Logger *slog.Logger
	Now    func() time.Time
}

// NewRouter creates and configures the gin engine around handler.
func NewRouter(handler *Handler, opts Options) *gin.Engine {
	r := gin.New()

	if opts.IngestRate <= 0 {
		opts.IngestRate = rate.Limit(10)
	}
	if opts.IngestBurst <= 0 {
		opts.IngestBurst = 5
	}
	ingestLimiter := RateLimiter(opts.IngestRate, opts.IngestBurst)

	r.Use(gin.Recovery(), RequestLog(handler.log), Instrument(opts.Metrics), NoStore())

	r.GET("/health", handler.Health)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}
	r.GET("/documents/*file", handler.ServeDocument)

	if opts.Hub != nil {
		r.GET(socketRoute(opts.SocketPath), gin.WrapH(opts.Hub))
	}

	api := r.Group("/api")
	{
		api.GET("/documents/*part", handler.GetDocument)
		api.POST("/socket-events", handler.PostSocketEvent)

		v1 := api.Group("/v1")
		v1.Use(BearerAuth(opts.Token))
		{
			v1.GET("/part-locations", handler.GetPartLocations)
			v1.POST("/scans", ingestLimiter, handler.PostScan)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func socketRoute(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		path = "socket.io"
	}
	return "/" + path + "/*any"
}
