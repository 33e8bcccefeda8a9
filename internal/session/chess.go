package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"minigame/client/internal/chess"
	"minigame/client/pkg/proto"
)

// Chess is the client-side view of a chess match. Legality is checked
// locally for responsiveness, but the server-echoed position is the one
// ultimately rendered.
type Chess struct {
	state
	board    *chess.Board
	fen      string
	lastMove *proto.SquarePair
}

// NewChess creates a session for a known room. initialFEN seeds the
// position from the bootstrap response; empty means the starting position.
// The rules engine instance is owned by this session alone.
func NewChess(roomID, playerID, mark, initialFEN string) (*Chess, error) {
	board := chess.New()
	if initialFEN != "" {
		if err := board.Load(initialFEN); err != nil {
			return nil, fmt.Errorf("seed position: %w", err)
		}
	}
	return &Chess{
		state: newState(roomID, playerID, mark),
		board: board,
		fen:   board.FEN(),
	}, nil
}

// FEN reports the displayed position.
func (g *Chess) FEN() string { return g.fen }

// LastMove reports the from/to pair of the most recent move for highlight
// purposes, or nil.
func (g *Chess) LastMove() *proto.SquarePair { return g.lastMove }

// HandleFrame consumes one raw inbound frame. Duplicate and malformed
// frames are dropped without effect.
func (g *Chess) HandleFrame(raw []byte) []Effect {
	env := g.decode(raw)
	if env == nil {
		return nil
	}

	_, span := tracer.Start(context.Background(), "chess.HandleFrame", trace.WithAttributes(
		attribute.String("room.id", g.roomID),
		attribute.String("message.action", string(env.Action)),
	))
	defer span.End()

	switch env.Action {
	case proto.ActionChessMove:
		mv, err := env.ChessMove()
		if err != nil {
			slog.Warn("dropping move frame", "room.id", g.roomID, "error", err)
			return nil
		}
		if err := g.board.Load(mv.FEN); err != nil {
			slog.Warn("dropping move frame with bad position", "room.id", g.roomID, "error", err)
			return nil
		}
		g.fen = g.board.FEN()
		g.lastMove = mv.LastMove
		return g.evaluate()

	case proto.ActionChessGameState:
		fen, err := env.Text()
		if err != nil {
			slog.Warn("dropping state frame", "room.id", g.roomID, "error", err)
			return nil
		}
		if err := g.board.Load(fen); err != nil {
			slog.Warn("dropping state frame with bad position", "room.id", g.roomID, "error", err)
			return nil
		}
		g.fen = g.board.FEN()
		g.lastMove = nil
		return g.evaluate()
	}

	effects, _ := g.handleCommon(env, g.resetLocal)
	return effects
}

// Drop is the local move intent from a drag-and-drop. promotion is empty
// until the user picks a piece; a pawn reaching the last rank without one
// is provisionally rejected and the shell is asked to prompt.
func (g *Chess) Drop(from, to, promotion string) []Effect {
	if g.phase != PhaseActive {
		return []Effect{ShowAlert{Kind: AlertWarning, Text: "The game is not active yet!"}}
	}

	res, err := g.board.Play(chess.Move{From: from, To: to, Promotion: promotion}, g.mark)
	if err != nil {
		switch {
		case errors.Is(err, chess.ErrPromotionRequired):
			return []Effect{PromptPromotion{From: from, To: to}}
		case errors.Is(err, chess.ErrNotYourTurn):
			return []Effect{ShowAlert{Kind: AlertWarning, Text: "It's not your turn!"}}
		default:
			slog.Warn("illegal move attempt", "room.id", g.roomID, "error", err)
		}
		return nil
	}

	g.fen = res.FEN
	g.lastMove = &proto.SquarePair{From: from, To: to}

	sound := SoundMove
	if res.Captured {
		sound = SoundCapture
	}

	effects := []Effect{PlaySound{Sound: sound}}
	effects = append(effects, g.emit(proto.ActionChessMove, proto.ChessMove{
		FEN:       res.FEN,
		LastMove:  g.lastMove,
		Promotion: res.Promotion,
	})...)
	return append(effects, g.evaluate()...)
}

// evaluate runs terminal-state checks and, on a fresh terminal result,
// announces it on the wire. Replaying an already-terminal position is a
// no-op, which keeps inbound move echoes idempotent.
func (g *Chess) evaluate() []Effect {
	if g.phase == PhaseOver {
		return nil
	}
	out := g.board.Evaluate()
	if !out.Over {
		return nil
	}
	g.phase = PhaseOver
	if out.Draw {
		g.winner = "Draw"
		return g.emit(proto.ActionGameDraw, out.Message)
	}
	g.winner = out.Message
	return g.emit(proto.ActionGameCheckmate, out.Message)
}

func (g *Chess) resetLocal() {
	g.board.Reset()
	g.fen = g.board.FEN()
	g.lastMove = nil
}
