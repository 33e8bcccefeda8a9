// Package transport owns the websocket connection for one room. It
// delivers raw inbound frames, in arrival order, to a single handler and
// serializes outbound writes. Frame content is opaque here; parsing and
// the duplicate guard live in the session layer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("transport")

// redialDelay is the fixed pause between reconnect attempts. There is no
// backoff and no attempt cap; a lost connection redials until Close.
const redialDelay = time.Second

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: connection closed")

// FrameHandler receives each inbound frame. Calls are made from the read
// pump goroutine, one at a time, in arrival order.
type FrameHandler func(frame []byte)

// Manager maintains the connection for a single room and player. The
// first dial happens in Dial; after that a lost connection is redialed
// automatically and the read pump resumes on the new connection.
type Manager struct {
	url      string
	roomID   string
	playerID string
	handler  FrameHandler

	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// Endpoint builds the websocket URL for a room and player on the given
// base, e.g. ws://localhost:8080.
func Endpoint(wsBase, roomID, playerID string) string {
	q := url.Values{}
	q.Set("room_id", roomID)
	q.Set("player_id", playerID)
	return fmt.Sprintf("%s/ws?%s", wsBase, q.Encode())
}

// Dial opens the room connection. A failed initial handshake is terminal:
// the caller is expected to clear persisted room state rather than retry,
// since it usually means the room expired.
func Dial(ctx context.Context, wsBase, roomID, playerID string, handler FrameHandler) (*Manager, error) {
	ctx, span := tracer.Start(ctx, "transport.Dial", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	m := &Manager{
		url:      Endpoint(wsBase, roomID, playerID),
		roomID:   roomID,
		playerID: playerID,
		handler:  handler,
		closed:   make(chan struct{}),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Websocket handshake failed")
		return nil, fmt.Errorf("dial %s: %w", m.url, err)
	}
	m.conn = conn
	slog.InfoContext(ctx, "websocket connected", "room.id", roomID, "player.id", playerID)
	return m, nil
}

// Send writes one frame. Writes are serialized; concurrent callers block
// rather than interleave. Send fails while the connection is down, which
// matches the frame-loss window of a browser reload mid-reconnect.
func (m *Manager) Send(frame []byte) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return errors.New("transport: connection down, frame dropped")
	}
	return m.conn.WriteMessage(websocket.TextMessage, frame)
}

// Run drives the read pump until Close or ctx cancellation. A read error
// on an established connection is not terminal: the connection is
// redialed after a fixed delay, indefinitely.
func (m *Manager) Run(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "transport.Run", trace.WithAttributes(
		attribute.String("room.id", m.roomID),
		attribute.String("player.id", m.playerID),
	))
	defer span.End()

	for {
		err := m.readPump(ctx)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "websocket read failed, reconnecting", "room.id", m.roomID, "error", err)

		select {
		case <-m.closed:
			return
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
		if err := m.redial(ctx); err != nil {
			slog.WarnContext(ctx, "websocket redial failed", "room.id", m.roomID, "error", err)
		}
	}
}

// readPump reads frames until the connection drops. A nil return means
// Run should stop; an error means redial.
func (m *Manager) readPump(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return errors.New("transport: no connection")
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.closed:
				return nil
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		m.handler(frame)
	}
}

// redial replaces the dead connection. Failures are retried by the next
// Run iteration; a redial attempt that loses the race with Close is
// discarded.
func (m *Manager) redial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.closed:
		conn.Close()
		return nil
	default:
	}
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = conn
	slog.InfoContext(ctx, "websocket reconnected", "room.id", m.roomID, "player.id", m.playerID)
	return nil
}

// Close stops the read pump and reconnect loop. Safe to call more than
// once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closed)
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.conn != nil {
			err = m.conn.Close()
			m.conn = nil
		}
	})
	return err
}
