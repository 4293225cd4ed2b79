// Package metrics defines the Prometheus metrics of the kiosk and the
// document server. A nil *Kiosk or *Server records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// transportStatuses are the values of the docviewer_transport_status gauge.
var transportStatuses = []string{"disabled", "connecting", "live", "offline", "error"}

// Kiosk holds the kiosk's metrics.
type Kiosk struct {
	eventsReceived   *prometheus.CounterVec
	eventsRejected   *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	transportStatus  *prometheus.GaugeVec
	directoryRecords prometheus.Gauge
}

// NewKiosk registers the kiosk metrics with reg. A nil registry yields nil.
func NewKiosk(reg prometheus.Registerer) *Kiosk {
	if reg == nil {
		return nil
	}
	m := &Kiosk{
		eventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_events_received_total",
				Help: "Channel events received from the transport",
			},
			[]string{"channel"},
		),
		eventsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_events_rejected_total",
				Help: "Channel events that did not trigger a lookup",
			},
			[]string{"reason"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_lookups_total",
				Help: "Document lookups by outcome",
			},
			[]string{"outcome"},
		),
		transportStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docviewer_transport_status",
				Help: "1 for the current transport status, 0 otherwise",
			},
			[]string{"status"},
		),
		directoryRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docviewer_directory_records",
			Help: "Records in the location directory",
		}),
	}
	reg.MustRegister(m.eventsReceived, m.eventsRejected, m.lookups, m.transportStatus, m.directoryRecords)
	return m
}

// EventReceived counts a channel event.
func (m *Kiosk) EventReceived(channel string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(channel).Inc()
}

// EventRejected counts a filtered event.
func (m *Kiosk) EventRejected(reason string) {
	if m == nil {
		return
	}
	m.eventsRejected.WithLabelValues(reason).Inc()
}

// Lookup counts a completed lookup; outcome is "found" or "failed".
func (m *Kiosk) Lookup(outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
}

// TransportStatus marks status as the current one.
func (m *Kiosk) TransportStatus(status string) {
	if m == nil {
		return
	}
	for _, s := range transportStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.transportStatus.WithLabelValues(s).Set(v)
	}
}

// DirectoryRecords sets the directory size.
func (m *Kiosk) DirectoryRecords(n int) {
	if m == nil {
		return
	}
	m.directoryRecords.Set(float64(n))
}

// Server holds the document server's metrics.
type Server struct {
	requests   *prometheus.CounterVec
	scans      prometheus.Counter
	hubClients prometheus.Gauge
}

// NewServer registers the server metrics with reg. A nil registry yields
// nil.
func NewServer(reg prometheus.Registerer) *Server {
	if reg == nil {
		return nil
	}
	m := &Server{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docserver_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docserver_scans_ingested_total",
			Help: "Scans accepted by the ingest endpoint",
		}),
		hubClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docserver_socket_clients",
			Help: "Connected Socket.IO clients",
		}),
	}
	reg.MustRegister(m.requests, m.scans, m.hubClients)
	return m
}

// Request counts one HTTP request.
func (m *Server) Request(method, route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// ScanIngested counts an accepted scan.
func (m *Server) ScanIngested() {
	if m == nil {
		return
	}
	m.scans.Inc()
}

// HubClients sets the connected client count.
func (m *Server) HubClients(n int) {
	if m == nil {
		return
	}
	m.hubClients.Set(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
