package devserver

import (
	"testing"
)

func TestMoveRejectsOutOfTurnAndOccupied(t *testing.T) {
	g := newTictactoeGame()

	if err := g.Move(PlayerO, 0, 0); err == nil {
		t.Fatal("expected O moving first to be rejected")
	}
	if err := g.Move(PlayerX, 0, 0); err != nil {
		t.Fatalf("expected X move to succeed, got %v", err)
	}
	if err := g.Move(PlayerO, 0, 0); err == nil {
		t.Fatal("expected occupied cell to be rejected")
	}
	if err := g.Move(PlayerO, 3, 0); err == nil {
		t.Fatal("expected out-of-range move to be rejected")
	}
}

func TestWinnerDetection(t *testing.T) {
	tests := []struct {
		name  string
		board [3][3]PlayerMark
		want  string
	}{
		{"row", [3][3]PlayerMark{{"X", "X", "X"}, {"O", "O", ""}, {"", "", ""}}, "X"},
		{"column", [3][3]PlayerMark{{"O", "X", ""}, {"O", "X", ""}, {"O", "", "X"}}, "O"},
		{"diagonal", [3][3]PlayerMark{{"X", "O", ""}, {"O", "X", ""}, {"", "", "X"}}, "X"},
		{"anti-diagonal", [3][3]PlayerMark{{"X", "X", "O"}, {"X", "O", ""}, {"O", "", ""}}, "O"},
		{"draw", [3][3]PlayerMark{{"X", "O", "X"}, {"X", "O", "O"}, {"O", "X", "X"}}, Draw},
		{"in progress", [3][3]PlayerMark{{"X", "", ""}, {"", "O", ""}, {"", "", ""}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &tictactoeGame{Board: tt.board}
			if got := g.checkWinner(); got != tt.want {
				t.Errorf("checkWinner() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBotWinsWhenPossible(t *testing.T) {
	board := [3][3]PlayerMark{
		{"O", "O", ""},
		{"X", "X", ""},
		{"", "", ""},
	}
	row, col := botMove(board, PlayerO)
	if row != 0 || col != 2 {
		t.Errorf("botMove() = (%d,%d), want (0,2) to win", row, col)
	}
}

func TestBotBlocksOpponentWin(t *testing.T) {
	board := [3][3]PlayerMark{
		{"X", "X", ""},
		{"", "O", ""},
		{"", "", ""},
	}
	row, col := botMove(board, PlayerO)
	if row != 0 || col != 2 {
		t.Errorf("botMove() = (%d,%d), want (0,2) to block", row, col)
	}
}

func TestBotPrefersCenter(t *testing.T) {
	board := [3][3]PlayerMark{
		{"X", "", ""},
		{"", "", ""},
		{"", "", ""},
	}
	row, col := botMove(board, PlayerO)
	if row != 1 || col != 1 {
		t.Errorf("botMove() = (%d,%d), want center (1,1)", row, col)
	}
}
