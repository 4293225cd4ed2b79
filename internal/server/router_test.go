package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io/v2/types"
	sio "github.com/zishang520/socket.io-client-go/socket"
	"golang.org/x/time/rate"

	"github.com/partdoc/kiosk/internal/docstore"
	"github.com/partdoc/kiosk/internal/hub"
	"github.com/partdoc/kiosk/internal/locations"
	"github.com/partdoc/kiosk/internal/metrics"
)

var fixedNow = time.Date(2025, 11, 4, 9, 5, 7, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(t *testing.T, opts Options) (*gin.Engine, Options) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEST-001.pdf"), []byte("%PDF-1.4 test"), 0644))
	if opts.Docs == nil {
		opts.Docs = docstore.New(dir, time.Minute)
	}
	if opts.Locations == nil {
		opts.Locations = locations.NewStore()
	}
	opts.Logger = quietLogger()
	opts.Now = func() time.Time { return fixedNow }
	return NewRouter(NewHandler(opts), opts), opts
}

func do(r http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetDocument(t *testing.T) {
	router, _ := setupRouter(t, Options{})

	w := do(router, "GET", "/api/documents/test-001", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"found": true,
		"partNumber": "test-001",
		"filename": "TEST-001.pdf",
		"url": "/documents/TEST-001.pdf?v=20251104090507"
	}`, w.Body.String())
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
}

func TestGetDocumentNotFound(t *testing.T) {
	router, _ := setupRouter(t, Options{})

	w := do(router, "GET", "/api/documents/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"found":false,"message":"document not found"}`, w.Body.String())
}

func TestServeDocument(t *testing.T) {
	router, _ := setupRouter(t, Options{})

	w := do(router, "GET", "/documents/TEST-001.pdf", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 test", w.Body.String())

	for _, target := range []string{"/documents/missing.pdf", "/documents/..%2Fsecret.pdf"} {
		w := do(router, "GET", target, "")
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestPostSocketEvent(t *testing.T) {
	router, _ := setupRouter(t, Options{})

	w := do(router, "POST", "/api/socket-events", `{"event":"scan.ingested","payload":{"order_code":"A"}}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"logged":true}`, w.Body.String())

	w = do(router, "POST", "/api/socket-events", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostScanStoresLocation(t *testing.T) {
	router, opts := setupRouter(t, Options{})

	w := do(router, "POST", "/api/v1/scans",
		`{"order_code":"TEST-001","location_code":"RACK-A1","device_id":"H1","scan_id":"s-1","updated_at":"2025-11-04T00:00:00Z"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Status   string         `json:"status"`
		Received map[string]any `json:"received"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, "s-1", resp.Received["scan_id"])

	rec, ok := opts.Locations.Get("TEST-001")
	require.True(t, ok)
	assert.Equal(t, "RACK-A1", rec.LocationCode)
	assert.Equal(t, "H1", rec.Device())
	assert.True(t, rec.UpdatedAt.Equal(time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)))
}

func TestPostScanPartNumberNotRecorded(t *testing.T) {
	router, opts := setupRouter(t, Options{})

	w := do(router, "POST", "/api/v1/scans", `{"part_number":"PN-4","location_code":"RACK-C2"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	_, ok := opts.Locations.Get("PN-4")
	assert.False(t, ok)
	assert.Empty(t, opts.Locations.List(10))
}

func TestPostScanAssignsIdentity(t *testing.T) {
	router, opts := setupRouter(t, Options{})

	w := do(router, "POST", "/api/v1/scans", `{"orderCode":"B-2","locationCode":"L9"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Received map[string]any `json:"received"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Received["scan_id"], 36)
	assert.Equal(t, "2025-11-04T09:05:07Z", resp.Received["updated_at"])

	rec, ok := opts.Locations.Get("B-2")
	require.True(t, ok)
	assert.True(t, rec.UpdatedAt.Equal(fixedNow))
}

func TestPostScanNonObjectBody(t *testing.T) {
	router, opts := setupRouter(t, Options{})

	w := do(router, "POST", "/api/v1/scans", `[1,2]`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 0, opts.Locations.Len())
}

func TestGetPartLocations(t *testing.T) {
	router, opts := setupRouter(t, Options{})
	opts.Locations.Record("OLD", "L1", nil, fixedNow.Add(-time.Hour))
	opts.Locations.Record("NEW", "L2", nil, fixedNow)

	w := do(router, "GET", "/api/v1/part-locations?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":[{
		"order_code":"NEW","location_code":"L2","device_id":null,
		"updated_at":"2025-11-04T09:05:07Z"
	}]}`, w.Body.String())

	w = do(router, "GET", "/api/v1/part-locations?limit=zzz", "")
	var resp PartLocationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Entries, 2)
}

func TestBearerAuthOnV1(t *testing.T) {
	router, _ := setupRouter(t, Options{Token: "secret"})

	assert.Equal(t, http.StatusUnauthorized, do(router, "GET", "/api/v1/part-locations", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(router, "GET", "/api/v1/part-locations", "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK,
		do(router, "GET", "/api/v1/part-locations", "", "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, do(router, "GET", "/api/v1/part-locations?token=secret", "").Code)

	// Document lookup and telemetry stay open.
	assert.Equal(t, http.StatusOK, do(router, "GET", "/api/documents/TEST-001", "").Code)
	assert.Equal(t, http.StatusCreated, do(router, "POST", "/api/socket-events", `{"event":"x"}`).Code)
}

func TestIngestRateLimited(t *testing.T) {
	router, _ := setupRouter(t, Options{IngestRate: rate.Every(time.Hour), IngestBurst: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusAccepted, do(router, "POST", "/api/v1/scans", `{}`).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(router, "POST", "/api/v1/scans", `{}`).Code)
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, Options{})

	w := do(router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Clients)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router, _ := setupRouter(t, Options{Metrics: metrics.NewServer(reg), Gatherer: reg})

	do(router, "POST", "/api/v1/scans", `{"order_code":"A","location_code":"L"}`)
	do(router, "GET", "/api/documents/A", "")

	body := do(router, "GET", "/metrics", "").Body.String()
	assert.Contains(t, body, "docserver_scans_ingested_total 1")
	assert.Contains(t, body, `docserver_requests_total{code="404",method="GET",route="/api/documents/*part"} 1`)
	assert.Contains(t, body, `docserver_requests_total{code="202",method="POST",route="/api/v1/scans"} 1`)
}

func TestScanBroadcastOverSocket(t *testing.T) {
	h := hub.New(hub.Options{Logger: quietLogger()})
	router, _ := setupRouter(t, Options{Hub: h, EventName: "part_location_updated"})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})

	connected := make(chan struct{}, 4)
	events := make(chan map[string]any, 4)
	opts := sio.DefaultOptions()
	opts.SetAutoConnect(false)
	opts.SetForceNew(true)
	opts.SetTransports(types.NewSet(sio.WebSocket))
	sock := sio.NewManager(srv.URL, opts).Socket("/", opts)
	sock.On("connect", func(...any) { connected <- struct{}{} })
	sock.On("part_location_updated", func(args ...any) {
		if payload, ok := args[0].(map[string]any); ok {
			events <- payload
		}
	})
	sock.Connect()
	t.Cleanup(func() { sock.Disconnect() })

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("socket client did not connect")
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/v1/scans", "application/json",
		strings.NewReader(`{"order_code":"TEST-001","location_code":"RACK-B1","scan_id":"s-9"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case got := <-events:
		assert.Equal(t, "s-9", got["scan_id"])
		assert.Equal(t, "RACK-B1", got["location_code"])
	case <-time.After(2 * time.Second):
		t.Fatal("scan not broadcast")
	}
}
