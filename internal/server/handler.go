package server

import (
	"log/slog"
	"time"

	"github.com/partdoc/kiosk/internal/docstore"
	"github.com/partdoc/kiosk/internal/hub"
	"github.com/partdoc/kiosk/internal/locations"
	"github.com/partdoc/kiosk/internal/metrics"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	docs      *docstore.Store
	locations *locations.Store
	hub       *hub.Hub
	metrics   *metrics.Server
	eventName string
	log       *slog.Logger
	now       func() time.Time
	started   time.Time
}

// NewHandler creates a Handler. Missing stores are replaced by empty ones.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		docs:      opts.Docs,
		locations: opts.Locations,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		eventName: opts.EventName,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if h.docs == nil {
		h.docs = docstore.New("documents", 0)
	}
	if h.locations == nil {
		h.locations = locations.NewStore()
	}
	if h.eventName == "" {
		h.eventName = defaultEventName
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.started = h.now()
	return h
}
