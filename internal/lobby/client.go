// Package lobby is the REST client for player registration and room
// bootstrap. The backend wraps every response in a success/message/data
// envelope; failures carry a fixed set of message strings that map to
// the sentinel errors below.
package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lobby")

// Backend failure messages, matched verbatim.
var (
	ErrPlayerNotFound   = errors.New("Player not found")
	ErrRoomNotFound     = errors.New("Room not found")
	ErrGameTypeMismatch = errors.New("Game type not match")
	ErrInvalidRequest   = errors.New("Invalid request")
	ErrMissingFields    = errors.New("RoomID and GameType are required")
)

var knownErrors = []error{
	ErrPlayerNotFound,
	ErrRoomNotFound,
	ErrGameTypeMismatch,
	ErrInvalidRequest,
	ErrMissingFields,
}

// response is the backend's uniform envelope.
type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// joinRoomData is the data payload of /room/create and /room/join.
type joinRoomData struct {
	PlayerID   string `json:"player_id"`
	PlayerMark string `json:"player_mark"`
	Room       struct {
		RoomID    string `json:"room_id"`
		IsActive  bool   `json:"is_active"`
		GameState struct {
			GameType string          `json:"game_type"`
			Data     json.RawMessage `json:"data"`
		} `json:"game_state"`
	} `json:"room"`
}

// RoomInfo is what a session needs to bootstrap: the room id, the mark
// the backend assigned, and the current game state snapshot.
type RoomInfo struct {
	RoomID       string
	PlayerMark   string
	GameType     string
	Active       bool
	InitialState json.RawMessage
}

// Client talks to one backend. The zero timeout of http.DefaultClient is
// avoided; lobby calls are interactive and should fail fast.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterPlayer registers a player id with the backend. Ids are client
// generated; re-registering an existing id is a backend error surfaced
// as a generic failure.
func (c *Client) RegisterPlayer(ctx context.Context, playerID string) error {
	ctx, span := tracer.Start(ctx, "lobby.RegisterPlayer", trace.WithAttributes(
		attribute.String("player.id", playerID),
	))
	defer span.End()

	body := map[string]string{"player_id": playerID}
	_, err := c.post(ctx, "/create/user", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Register player failed")
	}
	return err
}

// CreateRoom creates a room for gameType and joins the creator to it.
// The backend generates the room code and assigns the first mark ("X"
// or "white").
func (c *Client) CreateRoom(ctx context.Context, gameType, playerID string) (*RoomInfo, error) {
	ctx, span := tracer.Start(ctx, "lobby.CreateRoom", trace.WithAttributes(
		attribute.String("player.id", playerID),
		attribute.String("game.type", gameType),
	))
	defer span.End()

	body := map[string]string{"game_type": gameType, "player_id": playerID}
	data, err := c.post(ctx, "/room/create", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create room failed")
		return nil, err
	}
	return parseRoomInfo(data)
}

// JoinRoom joins an existing room. The game type must match the room's;
// a mismatch is ErrGameTypeMismatch.
func (c *Client) JoinRoom(ctx context.Context, roomID, gameType, playerID string) (*RoomInfo, error) {
	ctx, span := tracer.Start(ctx, "lobby.JoinRoom", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	body := map[string]string{"room_id": roomID, "game_type": gameType, "player_id": playerID}
	data, err := c.post(ctx, "/room/join", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Join room failed")
		return nil, err
	}
	return parseRoomInfo(data)
}

// GameState fetches the current state snapshot for a room.
func (c *Client) GameState(ctx context.Context, roomID string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "lobby.GameState", trace.WithAttributes(
		attribute.String("room.id", roomID),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/game/state/"+roomID, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Get game state failed")
	}
	return data, err
}

func parseRoomInfo(data json.RawMessage) (*RoomInfo, error) {
	var d joinRoomData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode room payload: %w", err)
	}
	return &RoomInfo{
		RoomID:       d.Room.RoomID,
		PlayerMark:   d.PlayerMark,
		GameType:     d.Room.GameState.GameType,
		Active:       d.Room.IsActive,
		InitialState: d.Room.GameState.Data,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do runs the request and unwraps the response envelope. A failure
// message matching a known backend string maps to its sentinel; anything
// else keeps the backend's message text.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var r response
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	if !r.Success {
		for _, known := range knownErrors {
			if r.Message == known.Error() {
				return nil, known
			}
		}
		if r.Message == "" {
			return nil, fmt.Errorf("%s %s: backend returned status %d", req.Method, req.URL.Path, res.StatusCode)
		}
		return nil, errors.New(r.Message)
	}
	return r.Data, nil
}
