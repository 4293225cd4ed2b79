// Package embed talks to a parent process that hosts the kiosk. The parent
// serves a WebSocket on a Unix socket; each text frame carries one JSON
// message.
package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/partdoc/kiosk/internal/viewer"
)

// Message types.
const (
	TypeViewerState  = "viewer-state"
	TypeBarcode      = "dv-barcode"
	TypeFocusRequest = "focus-request"
	TypeViewerReturn = "viewer-return"
)

const (
	sendBuffer       = 64
	writeTimeout     = 5 * time.Second
	handshakeTimeout = 5 * time.Second
	maxMessage       = 64 << 10

	// The host part is ignored; the dialer always connects to the socket path.
	endpoint = "ws://embed/"
)

// ViewerStateMessage reports a display transition to the parent.
type ViewerStateMessage struct {
	Type     string `json:"type"`
	State    string `json:"state"`
	Part     string `json:"part"`
	Filename string `json:"filename"`
}

// BarcodeMessage reports the part being looked up, and its order once
// found.
type BarcodeMessage struct {
	Type  string `json:"type"`
	Part  string `json:"part"`
	Order string `json:"order"`
}

// Handler receives requests from the parent. Methods are called from the
// bridge's read goroutine.
type Handler interface {
	FocusRequest()
	ViewerReturn()
}

// Bridge is a connection to the parent. It implements viewer.Notifier.
type Bridge struct {
	conn    *websocket.Conn
	handler Handler
	logger  *slog.Logger
	send    chan []byte

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects to the parent's WebSocket served on the Unix socket at path.
func Dial(ctx context.Context, path string, h Handler, logger *slog.Logger) (*Bridge, error) {
	d := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var nd net.Dialer
			return nd.DialContext(ctx, "unix", path)
		},
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := d.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial embed socket %s: %w", path, err)
	}
	return New(conn, h, logger), nil
}

// New starts a bridge over an established connection.
func New(conn *websocket.Conn, h Handler, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	conn.SetReadLimit(maxMessage)
	b := &Bridge{
		conn:    conn,
		handler: h,
		logger:  logger,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
	b.wg.Add(2)
	go b.writePump()
	go b.readLoop()
	return b
}

// NotifyState sends a viewer-state message.
func (b *Bridge) NotifyState(s viewer.Snapshot) {
	b.enqueue(ViewerStateMessage{
		Type:     TypeViewerState,
		State:    string(s.State),
		Part:     s.Part,
		Filename: s.Filename,
	})
}

// NotifyBarcode sends a dv-barcode message.
func (b *Bridge) NotifyBarcode(part, order string) {
	b.enqueue(BarcodeMessage{Type: TypeBarcode, Part: part, Order: order})
}

// Close shuts the connection and waits for both pumps to exit.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	b.wg.Wait()
	return err
}

// enqueue never blocks; a parent that stops reading loses messages.
func (b *Bridge) enqueue(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("embed marshal failed", "error", err)
		return
	}
	select {
	case <-b.done:
	case b.send <- data:
	default:
		b.logger.Warn("embed send buffer full, dropping message")
	}
}

func (b *Bridge) writePump() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case data := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.logger.Debug("embed write failed", "error", err)
				return
			}
		}
	}
}

type inbound struct {
	Type string `json:"type"`
}

func (b *Bridge) readLoop() {
	defer b.wg.Done()
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					b.logger.Info("embed parent closed connection")
				} else {
					b.logger.Debug("embed read ended", "error", err)
				}
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Debug("embed ignoring malformed message", "error", err)
			continue
		}
		if b.handler == nil {
			continue
		}
		switch msg.Type {
		case TypeFocusRequest:
			b.handler.FocusRequest()
		case TypeViewerReturn:
			b.handler.ViewerReturn()
		}
	}
}
