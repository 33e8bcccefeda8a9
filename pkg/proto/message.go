package proto

import (
	"encoding/json"
	"fmt"
)

// Sender identifies the originating player of a frame. Server-originated
// state pushes may omit it.
type Sender struct {
	PlayerID string `json:"player_id"`
}

// Envelope is the wire message exchanged over the room socket, in both
// directions. The shape of Message depends on Action.
type Envelope struct {
	Action    Action          `json:"action" validate:"required"`
	Message   json.RawMessage `json:"message,omitempty"`
	Sender    *Sender         `json:"sender,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// From reports the sender's player id, or "" for server-originated frames.
func (e *Envelope) From() string {
	if e.Sender == nil {
		return ""
	}
	return e.Sender.PlayerID
}

// TicTacToeState is the payload of TICTACTOE_GAME_STATE. It is a full
// snapshot; the client replaces its local copy wholesale.
type TicTacToeState struct {
	Board    [3][3]string `json:"board"`
	Turn     string       `json:"turn"`
	Winner   string       `json:"winner"`
	IsActive bool         `json:"is_active"`
}

// TicTacToeMove is the payload of an outgoing TICTACTOE_MOVE.
type TicTacToeMove struct {
	RoomID   string `json:"room_id" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
	Row      int    `json:"row" validate:"min=0,max=2"`
	Col      int    `json:"col" validate:"min=0,max=2"`
}

// SquarePair is a from/to pair in algebraic square notation, used for
// last-move highlighting.
type SquarePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChessMove is the payload of CHESS_MOVE in both directions. Promotion is
// set only on frames for moves that promoted a pawn.
type ChessMove struct {
	FEN       string      `json:"fen" validate:"required"`
	LastMove  *SquarePair `json:"lastMove,omitempty"`
	Promotion string      `json:"promotion,omitempty"`
}

// MarkUpdate is the payload of MARK_UPDATE. Marks maps player ids to their
// newly assigned marks; Active, when present, carries the room's active flag.
type MarkUpdate struct {
	Marks  map[string]string `json:"marks"`
	Active *bool             `json:"active,omitempty"`
}

// TicTacToeState decodes the envelope's payload as a TICTACTOE_GAME_STATE
// snapshot.
func (e *Envelope) TicTacToeState() (*TicTacToeState, error) {
	var s TicTacToeState
	if err := json.Unmarshal(e.Message, &s); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Action, err)
	}
	return &s, nil
}

// TicTacToeMove decodes the envelope's payload as a TICTACTOE_MOVE.
func (e *Envelope) TicTacToeMove() (*TicTacToeMove, error) {
	var m TicTacToeMove
	if err := json.Unmarshal(e.Message, &m); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Action, err)
	}
	return &m, nil
}

// ChessMove decodes the envelope's payload as a CHESS_MOVE.
func (e *Envelope) ChessMove() (*ChessMove, error) {
	var m ChessMove
	if err := json.Unmarshal(e.Message, &m); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Action, err)
	}
	return &m, nil
}

// MarkUpdate decodes the envelope's payload as a MARK_UPDATE.
func (e *Envelope) MarkUpdate() (*MarkUpdate, error) {
	var m MarkUpdate
	if err := json.Unmarshal(e.Message, &m); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Action, err)
	}
	return &m, nil
}

// Text decodes the envelope's payload as a plain JSON string. Used for
// CHAT_MESSAGE, CHESS_GAME_STATE (a FEN string), GAME_CHECKMATE and
// GAME_DRAW.
func (e *Envelope) Text() (string, error) {
	var s string
	if err := json.Unmarshal(e.Message, &s); err != nil {
		return "", fmt.Errorf("decode %s payload: %w", e.Action, err)
	}
	return s, nil
}
