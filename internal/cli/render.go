package cli

import (
	"fmt"
	"strings"

	"minigame/client/internal/session"
)

// renderTicTacToe draws the 3x3 grid with row/column indexes for the
// move command.
func renderTicTacToe(g *session.TicTacToe) string {
	var b strings.Builder
	board := g.Board()

	b.WriteString("    0   1   2\n")
	for r := 0; r < 3; r++ {
		b.WriteString(fmt.Sprintf("%d ", r))
		for c := 0; c < 3; c++ {
			cell := board[r][c]
			if cell == "" {
				cell = " "
			}
			b.WriteString(fmt.Sprintf("  %s ", cell))
			if c < 2 {
				b.WriteString("|")
			}
		}
		b.WriteString("\n")
		if r < 2 {
			b.WriteString("   ---+---+---\n")
		}
	}

	b.WriteString(statusLine(g, g.Turn()))
	return b.String()
}

// pieceGlyphs maps FEN piece letters to unicode chess glyphs.
var pieceGlyphs = map[byte]rune{
	'K': '♔', 'Q': '♕', 'R': '♖', 'B': '♗', 'N': '♘', 'P': '♙',
	'k': '♚', 'q': '♛', 'r': '♜', 'b': '♝', 'n': '♞', 'p': '♟',
}

// renderChess draws the position from the session FEN, white at the
// bottom regardless of which side the player holds.
func renderChess(g *session.Chess) string {
	var b strings.Builder

	placement := strings.SplitN(g.FEN(), " ", 2)[0]
	ranks := strings.Split(placement, "/")

	b.WriteString("    a b c d e f g h\n")
	for i, rank := range ranks {
		b.WriteString(fmt.Sprintf("  %d ", 8-i))
		for j := 0; j < len(rank); j++ {
			ch := rank[j]
			if ch >= '1' && ch <= '8' {
				for n := 0; n < int(ch-'0'); n++ {
					b.WriteString(". ")
				}
				continue
			}
			glyph, ok := pieceGlyphs[ch]
			if !ok {
				glyph = rune(ch)
			}
			b.WriteRune(glyph)
			b.WriteString(" ")
		}
		b.WriteString(fmt.Sprintf("%d\n", 8-i))
	}
	b.WriteString("    a b c d e f g h\n")

	if lm := g.LastMove(); lm != nil {
		b.WriteString(fmt.Sprintf("  last move: %s-%s\n", lm.From, lm.To))
	}
	b.WriteString(statusLine(g, sideToMoveFromFEN(g.FEN())))
	return b.String()
}

func sideToMoveFromFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return "black"
	}
	return "white"
}

// statusLine summarizes phase, turn and result beneath the board.
func statusLine(s interface {
	Phase() session.Phase
	Winner() string
	Mark() string
	Unread() bool
}, turn string) string {
	var b strings.Builder
	switch s.Phase() {
	case session.PhaseWaiting:
		b.WriteString("  waiting for opponent...\n")
	case session.PhaseActive:
		you := ""
		if turn == s.Mark() {
			you = " (you)"
		}
		b.WriteString(fmt.Sprintf("  you are %s | turn: %s%s\n", s.Mark(), turn, you))
	case session.PhaseOver:
		if s.Winner() == "Draw" {
			b.WriteString("  game over: draw. Type 'reset' to request a rematch.\n")
		} else {
			b.WriteString(fmt.Sprintf("  game over: %s. Type 'reset' to request a rematch.\n", s.Winner()))
		}
	}
	if s.Unread() {
		b.WriteString("  [new chat messages, type 'chat' to read]\n")
	}
	return b.String()
}
