package chess

import (
	"errors"
	"fmt"
	"strings"

	engine "github.com/notnil/chess"
)

// Marks used by the backend for chess players.
const (
	MarkWhite = "white"
	MarkBlack = "black"
)

// Outcome messages sent on the wire and rendered to the user.
const (
	WhiteWinsMessage = "White pieces win by checkmate!"
	BlackWinsMessage = "Black pieces win by checkmate!"
	DrawMessage      = "The match ended in a draw."
)

var (
	// ErrNotYourTurn rejects a move attempt when the side to move does not
	// match the local player's mark. No network frame is emitted.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrPromotionRequired rejects a pawn move onto the last rank until a
	// promotion piece is supplied. The position is left unchanged.
	ErrPromotionRequired = errors.New("promotion piece required")

	// ErrIllegalMove rejects a move the rules engine does not accept.
	ErrIllegalMove = errors.New("illegal move")
)

// Board wraps the rules engine for one game session. Each session owns its
// own Board; nothing here is shared across sessions.
type Board struct {
	game *engine.Game
}

// New returns a board at the chess starting position.
func New() *Board {
	return &Board{game: engine.NewGame()}
}

// Load replaces the position wholesale from a FEN string. Move history is
// discarded, matching the reconciliation semantics of a full-state push.
func (b *Board) Load(fen string) error {
	opt, err := engine.FEN(fen)
	if err != nil {
		return fmt.Errorf("load fen: %w", err)
	}
	b.game = engine.NewGame(opt)
	return nil
}

// Reset returns the board to the starting position.
func (b *Board) Reset() {
	b.game = engine.NewGame()
}

// FEN reports the current position.
func (b *Board) FEN() string {
	return b.game.Position().String()
}

// SideToMove reports "white" or "black".
func (b *Board) SideToMove() string {
	if b.game.Position().Turn() == engine.White {
		return MarkWhite
	}
	return MarkBlack
}

// Move is a local move attempt. Promotion is empty unless the user has
// picked a piece ("q", "r", "b" or "n").
type Move struct {
	From      string
	To        string
	Promotion string
}

// MoveResult describes a successfully applied local move.
type MoveResult struct {
	FEN       string
	Captured  bool
	Promotion string
}

// Play validates and applies a local move attempt for the player holding
// mark. It rejects out-of-turn attempts and defers pawn promotion until a
// piece is chosen; in both cases the position is unchanged.
func (b *Board) Play(mv Move, mark string) (*MoveResult, error) {
	if b.SideToMove() != mark {
		return nil, ErrNotYourTurn
	}

	promo := ""
	if b.isPromotion(mv.From, mv.To) {
		if mv.Promotion == "" {
			return nil, ErrPromotionRequired
		}
		promo = strings.ToLower(mv.Promotion)
		switch promo {
		case "q", "r", "b", "n":
		default:
			return nil, fmt.Errorf("%w: bad promotion piece %q", ErrIllegalMove, mv.Promotion)
		}
	}

	notation := engine.UCINotation{}
	move, err := notation.Decode(b.game.Position(), mv.From+mv.To+promo)
	if err != nil {
		return nil, fmt.Errorf("%w: %s%s", ErrIllegalMove, mv.From, mv.To)
	}
	captured := move.HasTag(engine.Capture) || move.HasTag(engine.EnPassant)
	if err := b.game.Move(move); err != nil {
		return nil, fmt.Errorf("%w: %s%s", ErrIllegalMove, mv.From, mv.To)
	}

	return &MoveResult{FEN: b.FEN(), Captured: captured, Promotion: promo}, nil
}

// Outcome is the result of terminal-state evaluation.
type Outcome struct {
	Over    bool
	Draw    bool
	Message string
}

// Evaluate runs terminal-state checks against the current position. It is
// the single evaluation path for local moves, inbound move echoes and
// full-state syncs.
func (b *Board) Evaluate() Outcome {
	// Status is derived from the position, not accumulated game state, so a
	// board loaded from a FEN push evaluates the same as one played locally.
	switch b.game.Position().Status() {
	case engine.Checkmate:
		// The side to move is the side that was mated.
		msg := BlackWinsMessage
		if b.game.Position().Turn() == engine.Black {
			msg = WhiteWinsMessage
		}
		return Outcome{Over: true, Message: msg}
	case engine.Stalemate:
		return Outcome{Over: true, Draw: true, Message: DrawMessage}
	}
	if b.game.Outcome() == engine.Draw {
		return Outcome{Over: true, Draw: true, Message: DrawMessage}
	}
	// Threefold repetition and the fifty-move rule are claimable rather
	// than automatic; the client treats them as an immediate draw.
	for _, m := range b.game.EligibleDraws() {
		if m == engine.ThreefoldRepetition || m == engine.FiftyMoveRule {
			return Outcome{Over: true, Draw: true, Message: DrawMessage}
		}
	}
	return Outcome{}
}

// isPromotion reports whether moving the piece on from to to would promote
// a pawn, based on the current position.
func (b *Board) isPromotion(from, to string) bool {
	sq, ok := parseSquare(from)
	if !ok || len(to) != 2 {
		return false
	}
	piece := b.game.Position().Board().Piece(sq)
	if piece.Type() != engine.Pawn {
		return false
	}
	switch piece.Color() {
	case engine.White:
		return to[1] == '8'
	case engine.Black:
		return to[1] == '1'
	}
	return false
}

// parseSquare converts algebraic notation ("e2") to the engine's square
// index, a1=0 through h8=63.
func parseSquare(s string) (engine.Square, bool) {
	if len(s) != 2 {
		return 0, false
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return engine.Square(rank*8 + file), true
}
