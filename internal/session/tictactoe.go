package session

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"minigame/client/pkg/proto"
)

// TicTacToe is the client-side view of a Tic-Tac-Toe match. The board is
// server-authoritative: the client never mutates the grid locally and every
// snapshot it renders comes from a full-state push.
type TicTacToe struct {
	state
	board [3][3]string
	turn  string
}

// NewTicTacToe creates a session for a known room. mark may be reassigned
// by the server mid-session.
func NewTicTacToe(roomID, playerID, mark string) *TicTacToe {
	return &TicTacToe{state: newState(roomID, playerID, mark)}
}

// Board returns the last board snapshot pushed by the server.
func (g *TicTacToe) Board() [3][3]string { return g.board }

// Turn reports the mark whose move it is.
func (g *TicTacToe) Turn() string { return g.turn }

// HandleFrame consumes one raw inbound frame. Duplicate and malformed
// frames are dropped without effect.
func (g *TicTacToe) HandleFrame(raw []byte) []Effect {
	env := g.decode(raw)
	if env == nil {
		return nil
	}

	_, span := tracer.Start(context.Background(), "tictactoe.HandleFrame", trace.WithAttributes(
		attribute.String("room.id", g.roomID),
		attribute.String("message.action", string(env.Action)),
	))
	defer span.End()

	if env.Action == proto.ActionTicTacToeGameState {
		st, err := env.TicTacToeState()
		if err != nil {
			slog.Warn("dropping game state frame", "room.id", g.roomID, "error", err)
			return nil
		}
		g.applyState(st)
		return nil
	}

	effects, _ := g.handleCommon(env, g.resetLocal)
	return effects
}

// applyState replaces the local view wholesale. This is the reconciliation
// path after reconnect as well as the normal move echo.
func (g *TicTacToe) applyState(st *proto.TicTacToeState) {
	g.board = st.Board
	g.turn = st.Turn
	g.winner = st.Winner
	switch {
	case st.Winner != "":
		g.phase = PhaseOver
	case st.IsActive:
		g.phase = PhaseActive
	default:
		g.phase = PhaseWaiting
	}
}

// Click is the local move intent. Rejections happen before any network
// round-trip; the server is the sole arbiter of legality and of the
// resulting board.
func (g *TicTacToe) Click(row, col int) []Effect {
	if g.phase != PhaseActive {
		return []Effect{ShowAlert{Kind: AlertWarning, Text: "The game is not active yet!"}}
	}
	if g.turn != g.mark {
		return []Effect{ShowAlert{Kind: AlertWarning, Text: "It's not your turn!"}}
	}
	return g.emit(proto.ActionTicTacToeMove, proto.TicTacToeMove{
		RoomID:   g.roomID,
		PlayerID: g.playerID,
		Row:      row,
		Col:      col,
	})
}

func (g *TicTacToe) resetLocal() {
	g.board = [3][3]string{}
	g.turn = ""
}
