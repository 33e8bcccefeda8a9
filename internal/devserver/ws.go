package devserver

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"minigame/client/pkg/proto"
)

// attach wires an upgraded connection into the room, announces the
// arrival and, once every seat is filled, starts the game.
func (s *Server) attach(r *room, playerID string, conn *websocket.Conn) *roomPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.players[playerID]
	p.conn = conn

	r.broadcastLocked(proto.ActionConnectedOnServer, "connected", playerID)

	if !r.active && r.allPresentLocked() {
		r.active = true
		r.broadcastLocked(proto.ActionMarkUpdate, proto.MarkUpdate{
			Marks:  r.marks(),
			Active: &r.active,
		}, "")
		r.broadcastLocked(proto.ActionStartGame, nil, "")
		r.pushStateLocked()
	}
	return p
}

// allPresentLocked reports whether every seat has a live connection. The
// bot counts as always present.
func (r *room) allPresentLocked() bool {
	seats := 2
	if len(r.players) < seats {
		return false
	}
	for _, p := range r.players {
		if p.id != botPlayerID && p.conn == nil {
			return false
		}
	}
	return true
}

// readLoop pumps frames from one player until the connection drops.
func (s *Server) readLoop(r *room, p *roomPlayer) {
	defer s.detach(r, p)
	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			slog.Warn("player connection closed", "room.id", r.id, "player.id", p.id, "error", err)
			return
		}
		s.dispatch(r, p, frame)
	}
}

// dispatch handles one inbound frame. Tic-tac-toe moves are arbitrated
// here and answered with a full-state push; everything else is relayed
// verbatim to the whole room, the sender included.
func (s *Server) dispatch(r *room, p *roomPlayer, frame []byte) {
	_, span := tracer.Start(s.baseCtx, "devserver.dispatch", trace.WithAttributes(
		attribute.String("room.id", r.id),
		attribute.String("player.id", p.id),
	))
	defer span.End()

	var env proto.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		slog.Warn("dropping unparseable frame", "room.id", r.id, "error", err)
		return
	}
	span.SetAttributes(attribute.String("message.action", string(env.Action)))

	r.mu.Lock()
	defer r.mu.Unlock()

	switch env.Action {
	case proto.ActionTicTacToeMove:
		mv, err := env.TicTacToeMove()
		if err != nil {
			slog.Warn("dropping malformed move", "room.id", r.id, "error", err)
			return
		}
		s.applyTicTacToeMove(r, p, mv.Row, mv.Col)

	case proto.ActionChessMove:
		mv, err := env.ChessMove()
		if err != nil {
			slog.Warn("dropping malformed chess move", "room.id", r.id, "error", err)
			return
		}
		// The clients enforce the rules; the room keeps the latest FEN so
		// late joiners and state fetches see the current position.
		r.fen = mv.FEN
		r.relayLocked(frame)

	case proto.ActionConfirmReset:
		r.resetLocked()
		r.relayLocked(frame)
		r.pushStateLocked()

	default:
		r.relayLocked(frame)
	}
}

// applyTicTacToeMove arbitrates one move and answers with state. In a
// bot room the bot replies immediately within the same push cycle.
func (s *Server) applyTicTacToeMove(r *room, p *roomPlayer, row, col int) {
	if !r.active {
		slog.Warn("move in inactive room", "room.id", r.id, "player.id", p.id)
		return
	}
	if err := r.ttt.Move(PlayerMark(p.mark), row, col); err != nil {
		slog.Warn("rejected move", "room.id", r.id, "player.id", p.id, "error", err)
		return
	}
	r.pushStateLocked()

	if r.vsBot && r.ttt.Winner == "" && r.ttt.CurrentTurn == PlayerO {
		br, bc := botMove(r.ttt.Board, PlayerO)
		if br >= 0 {
			if err := r.ttt.Move(PlayerO, br, bc); err != nil {
				slog.Error("bot made an invalid move", "room.id", r.id, "error", err)
				return
			}
			r.pushStateLocked()
		}
	}
}

// detach removes a dead connection and tells the rest of the room.
func (s *Server) detach(r *room, p *roomPlayer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	r.active = false
	r.broadcastLocked(proto.ActionUserLeftRoom, "player left the room", p.id)
	slog.Info("player disconnected", "room.id", r.id, "player.id", p.id)
}
