package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer upgrades each request and hands the connection to serve.
func wsServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEndpointEncodesRoomAndPlayer(t *testing.T) {
	got := Endpoint("ws://localhost:8080", "room 1", "p1")
	assert.Equal(t, "ws://localhost:8080/ws?player_id=p1&room_id=room+1", got)
}

func TestDialFailsAgainstRefusedPort(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1", "r1", "p1", func([]byte) {})
	require.Error(t, err)
}

func TestFramesDeliveredInOrder(t *testing.T) {
	base := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for _, msg := range []string{"one", "two", "three"} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	frames := make(chan string, 8)
	m, err := Dial(context.Background(), base, "r1", "p1", func(frame []byte) {
		frames <- string(frame)
	})
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-frames:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %q", want)
		}
	}
}

func TestSendReachesServer(t *testing.T) {
	received := make(chan string, 1)
	base := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(frame)
	})

	m, err := Dial(context.Background(), base, "r1", "p1", func([]byte) {})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Send([]byte("hello")))

	select {
	case got := <-received:
		assert.Equal(t, "hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive frame")
	}
}

func TestReconnectsAfterServerDrop(t *testing.T) {
	connects := make(chan struct{}, 4)
	first := true
	base := wsServer(t, func(conn *websocket.Conn) {
		connects <- struct{}{}
		if first {
			first = false
			conn.Close()
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("after-reconnect"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	frames := make(chan string, 4)
	m, err := Dial(context.Background(), base, "r1", "p1", func(frame []byte) {
		frames <- string(frame)
	})
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	select {
	case got := <-frames:
		assert.Equal(t, "after-reconnect", got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}

	// One initial dial plus at least one redial.
	assert.GreaterOrEqual(t, len(connects), 2)
}

func TestSendAfterCloseFails(t *testing.T) {
	base := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	m, err := Dial(context.Background(), base, "r1", "p1", func([]byte) {})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Send([]byte("late")), ErrClosed)
	require.NoError(t, m.Close())
}
