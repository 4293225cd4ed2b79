// Package client provides the HTTP client for the document server.
// Types mirror the server wire format without importing server packages.
package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/partdoc/kiosk/internal/directory"
)

var (
	// ErrStatus is matched by every *StatusError.
	ErrStatus = errors.New("unexpected status")
	// ErrNotFound is matched by a *StatusError with code 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string // server-supplied "message", may be empty
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// Is matches ErrStatus, and ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrStatus:
		return true
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// Reason is the user-facing failure text.
func (e *StatusError) Reason() string { return e.Message }

// DocumentInfo is the success body of GET /api/documents/{part}.
type DocumentInfo struct {
	Found      bool   `json:"found"`
	PartNumber string `json:"partNumber"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Order      string `json:"order,omitempty"`
}

// PartLocations is the body of GET /api/v1/part-locations.
type PartLocations struct {
	Entries []directory.LocationRecord `json:"entries"`
}

// SocketEvent is the telemetry body of POST /api/socket-events.
type SocketEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type errorBody struct {
	Message string `json:"message"`
}
