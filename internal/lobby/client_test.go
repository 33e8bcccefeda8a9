package lobby

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backend(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestCreateRoomParsesRoomInfo(t *testing.T) {
	c := backend(t, http.StatusCreated, `{
		"success": true,
		"message": "Room created successfully",
		"data": {
			"player_id": "p1",
			"player_mark": "X",
			"room": {
				"room_id": "AB12CD",
				"is_active": false,
				"game_state": {
					"game_type": "tictactoe",
					"data": {"board": [["","",""],["","",""],["","",""]], "turn": "X"}
				}
			}
		}
	}`)

	info, err := c.CreateRoom(context.Background(), "tictactoe", "p1")
	require.NoError(t, err)

	assert.Equal(t, "AB12CD", info.RoomID)
	assert.Equal(t, "X", info.PlayerMark)
	assert.Equal(t, "tictactoe", info.GameType)
	assert.False(t, info.Active)
	assert.True(t, json.Valid(info.InitialState))
}

func TestJoinRoomChessCarriesFENState(t *testing.T) {
	c := backend(t, http.StatusOK, `{
		"success": true,
		"message": "Player joined room successfully",
		"data": {
			"player_id": "p2",
			"player_mark": "black",
			"room": {
				"room_id": "AB12CD",
				"is_active": true,
				"game_state": {
					"game_type": "chess",
					"data": "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
				}
			}
		}
	}`)

	info, err := c.JoinRoom(context.Background(), "AB12CD", "chess", "p2")
	require.NoError(t, err)

	assert.Equal(t, "black", info.PlayerMark)
	assert.True(t, info.Active)

	var fen string
	require.NoError(t, json.Unmarshal(info.InitialState, &fen))
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", fen)
}

func TestBackendFailureMessagesMapToSentinels(t *testing.T) {
	tests := []struct {
		message string
		status  int
		want    error
	}{
		{"Player not found", http.StatusNotFound, ErrPlayerNotFound},
		{"Room not found", http.StatusNotFound, ErrRoomNotFound},
		{"Game type not match", http.StatusBadRequest, ErrGameTypeMismatch},
		{"Invalid request", http.StatusBadRequest, ErrInvalidRequest},
		{"RoomID and GameType are required", http.StatusBadRequest, ErrMissingFields},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			body, _ := json.Marshal(map[string]any{"success": false, "message": tt.message})
			c := backend(t, tt.status, string(body))

			_, err := c.JoinRoom(context.Background(), "r", "tictactoe", "p")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnknownFailureKeepsBackendMessage(t *testing.T) {
	c := backend(t, http.StatusBadRequest, `{"success": false, "message": "room is full"}`)

	_, err := c.CreateRoom(context.Background(), "tictactoe", "p1")
	require.Error(t, err)
	assert.Equal(t, "room is full", err.Error())
}

func TestRegisterPlayerSendsPlayerID(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/create/user", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success": true, "message": "Success registering player"}`))
	}))
	t.Cleanup(srv.Close)

	err := NewClient(srv.URL).RegisterPlayer(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"player_id": "p1"}, got)
}

func TestGameStateHitsRoomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/state/AB12CD", r.URL.Path)
		w.Write([]byte(`{"success": true, "message": "ok", "data": {"turn": "X"}}`))
	}))
	t.Cleanup(srv.Close)

	data, err := NewClient(srv.URL).GameState(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.JSONEq(t, `{"turn": "X"}`, string(data))
}
