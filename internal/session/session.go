// Package session holds the client-side state machines for the two game
// kinds. A session consumes parsed envelopes and local user intents and
// produces render-ready state plus a list of effects for the shell to run.
package session

import (
	"log/slog"

	"go.opentelemetry.io/otel"

	"minigame/client/pkg/proto"
)

var tracer = otel.Tracer("session")

// Phase is the lifecycle position of a session.
type Phase int

const (
	// PhaseWaiting: a room is known but the opponent has not arrived (or
	// left); no winner is set.
	PhaseWaiting Phase = iota
	// PhaseActive: both players present, moves accepted.
	PhaseActive
	// PhaseOver: a terminal result is displayed until a completed reset
	// handshake.
	PhaseOver
)

// GameKind selects the game a session plays.
type GameKind string

const (
	KindTicTacToe GameKind = "tictactoe"
	KindChess     GameKind = "chess"
)

// ChatEntry is one line of the room transcript. The transcript is held in
// memory only and lost on reload.
type ChatEntry struct {
	Sender    string
	Message   string
	Timestamp string
}

// state carries everything common to both game kinds.
type state struct {
	roomID   string
	playerID string
	mark     string

	phase  Phase
	winner string

	chat     []ChatEntry
	chatOpen bool
	unread   bool

	resetRequested bool

	dec *proto.Decoder
}

func newState(roomID, playerID, mark string) state {
	return state{
		roomID:   roomID,
		playerID: playerID,
		mark:     mark,
		dec:      proto.NewDecoder(),
	}
}

func (s *state) RoomID() string   { return s.roomID }
func (s *state) PlayerID() string { return s.playerID }
func (s *state) Mark() string     { return s.mark }
func (s *state) Phase() Phase     { return s.phase }
func (s *state) Active() bool     { return s.phase == PhaseActive }

// Winner is "" while undecided, the sentinel "Draw", or a human-readable
// victory string.
func (s *state) Winner() string { return s.winner }

// ResetRequested reports whether this peer has an unanswered reset request
// outstanding. There is no timeout; the flag clears only when the
// handshake completes.
func (s *state) ResetRequested() bool { return s.resetRequested }

// Transcript returns a copy of the chat log in insertion order.
func (s *state) Transcript() []ChatEntry {
	out := make([]ChatEntry, len(s.chat))
	copy(out, s.chat)
	return out
}

// Unread reports whether chat arrived while the panel was closed.
func (s *state) Unread() bool { return s.unread }

// OpenChat marks the chat panel focused and clears the unread indicator.
func (s *state) OpenChat() {
	s.chatOpen = true
	s.unread = false
}

func (s *state) CloseChat() {
	s.chatOpen = false
}

// SendChat emits a chat frame. The local transcript is updated when the
// server echoes the message back.
func (s *state) SendChat(text string) []Effect {
	return s.emit(proto.ActionChatMessage, text)
}

// RequestReset starts the two-phase reset handshake. Further requests are
// suppressed until the peer confirms; a peer that never confirms leaves
// the request outstanding.
func (s *state) RequestReset() []Effect {
	if s.phase != PhaseOver || s.resetRequested {
		return nil
	}
	s.resetRequested = true
	return s.emit(proto.ActionRequestReset, nil)
}

// AcceptReset answers a peer's reset request. Local state resets when the
// server echoes the confirmation, keeping both peers in lockstep.
func (s *state) AcceptReset() []Effect {
	return s.emit(proto.ActionConfirmReset, nil)
}

// Leave clears the persisted room state when the player navigates away.
func (s *state) Leave() []Effect {
	return []Effect{ClearPersisted{Keys: []string{KeyRoomID, KeyPlayerMark}}}
}

// decode runs the duplicate guard and codec. A nil envelope means the
// frame was dropped (duplicate or malformed) and must have no effect.
func (s *state) decode(raw []byte) *proto.Envelope {
	env, err := s.dec.Decode(raw)
	if err != nil {
		if err != proto.ErrDuplicateFrame {
			slog.Warn("dropping malformed frame", "room.id", s.roomID, "error", err)
		}
		return nil
	}
	return env
}

// emit encodes a client-originated frame into a Send effect.
func (s *state) emit(action proto.Action, payload any) []Effect {
	frame, err := proto.Encode(action, payload, s.playerID)
	if err != nil {
		slog.Error("encoding frame", "action", action, "error", err)
		return nil
	}
	return []Effect{Send{Frame: frame}}
}

// handleCommon processes the actions shared by both game kinds. resetLocal
// is the game-specific part of a completed reset handshake. The second
// return is false when the action is game-specific and was not consumed.
func (s *state) handleCommon(env *proto.Envelope, resetLocal func()) ([]Effect, bool) {
	switch env.Action {
	case proto.ActionConnectedOnServer:
		// Suppress the echo of our own join.
		if env.From() == s.playerID {
			return nil, true
		}
		return []Effect{ShowAlert{Kind: AlertInfo, Title: "Player Joined", Text: "The other player has joined the room."}}, true

	case proto.ActionUserLeftRoom:
		return []Effect{ShowAlert{Kind: AlertInfo, Title: "Player Left", Text: "The other player has left the room."}}, true

	case proto.ActionStartGame:
		if s.winner == "" {
			s.phase = PhaseActive
		}
		return nil, true

	case proto.ActionChatMessage:
		text, err := env.Text()
		if err != nil {
			slog.Warn("dropping chat frame", "error", err)
			return nil, true
		}
		s.chat = append(s.chat, ChatEntry{Sender: env.From(), Message: text, Timestamp: env.Timestamp})
		if !s.chatOpen {
			s.unread = true
			return []Effect{PlaySound{Sound: SoundNotification}}, true
		}
		return nil, true

	case proto.ActionMarkUpdate:
		mu, err := env.MarkUpdate()
		if err != nil {
			slog.Warn("dropping mark update", "error", err)
			return nil, true
		}
		mark, ok := mu.Marks[s.playerID]
		if !ok {
			// No entry for us; leave the local mark untouched.
			return nil, true
		}
		s.mark = mark
		if mu.Active != nil && s.winner == "" {
			if *mu.Active {
				s.phase = PhaseActive
			} else {
				s.phase = PhaseWaiting
			}
		}
		return []Effect{Persist{Key: KeyPlayerMark, Value: mark}}, true

	case proto.ActionGameCheckmate:
		msg, err := env.Text()
		if err != nil {
			slog.Warn("dropping checkmate frame", "error", err)
			return nil, true
		}
		s.winner = msg
		s.phase = PhaseOver
		return nil, true

	case proto.ActionGameDraw:
		s.winner = "Draw"
		s.phase = PhaseOver
		return nil, true

	case proto.ActionRequestReset:
		if env.From() == s.playerID {
			return nil, true
		}
		return []Effect{PromptResetConfirm{}}, true

	case proto.ActionConfirmReset:
		resetLocal()
		s.winner = ""
		s.resetRequested = false
		s.phase = PhaseActive
		return nil, true
	}

	return nil, false
}
