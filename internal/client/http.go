package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/partdoc/kiosk/internal/directory"
)

const (
	defaultTimeout = 10 * time.Second
	relayTimeout   = 3 * time.Second
)

// HTTPClient makes REST calls to the document server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	relay   *rate.Limiter
	logger  *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRelayLimit caps telemetry posts. Events over the limit are dropped.
func WithRelayLimit(limit rate.Limit, burst int) Option {
	return func(c *HTTPClient) { c.relay = rate.NewLimiter(limit, burst) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8000").
func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
		relay:   rate.NewLimiter(20, 20),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base without a trailing slash.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// FetchPartLocations fetches /api/v1/part-locations.
func (c *HTTPClient) FetchPartLocations(ctx context.Context) ([]directory.LocationRecord, error) {
	var out PartLocations
	if err := c.get(ctx, "/api/v1/part-locations", &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// LookupDocument fetches /api/documents/{part}.
func (c *HTTPClient) LookupDocument(ctx context.Context, part string) (*DocumentInfo, error) {
	var out DocumentInfo
	if err := c.get(ctx, "/api/documents/"+url.PathEscape(part), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RelayEvent posts a received channel event to /api/socket-events. It is
// best effort: rate-limited events are dropped without error.
func (c *HTTPClient) RelayEvent(ctx context.Context, event string, payload any) error {
	if !c.relay.Allow() {
		c.logger.Debug("telemetry relay dropped", "event", event)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, relayTimeout)
	defer cancel()
	return c.post(ctx, "/api/socket-events", SocketEvent{Event: event, Payload: payload}, nil)
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(http.MethodGet, path, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(http.MethodPost, path, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// statusError reads the optional {"message": ...} body of a failed
// response.
func statusError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return &StatusError{
		Method:  method,
		Path:    path,
		Code:    resp.StatusCode,
		Message: strings.TrimSpace(eb.Message),
	}
}
