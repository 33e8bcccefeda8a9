package devserver

import (
	"errors"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Draw is the winner value for a full board with no line.
	Draw = "Draw"

	borderMin = 0
	borderMax = 2
)

// tictactoeGame is the authoritative board for one room. X always moves
// first so two-client test runs are reproducible.
type tictactoeGame struct {
	Board       [3][3]PlayerMark
	CurrentTurn PlayerMark
	Winner      string
}

func newTictactoeGame() *tictactoeGame {
	return &tictactoeGame{
		Board:       [3][3]PlayerMark{},
		CurrentTurn: PlayerX,
		Winner:      "",
	}
}

// Move applies one move for mark. Out-of-turn, out-of-range and occupied
// cells are rejected without mutating the board.
func (g *tictactoeGame) Move(mark PlayerMark, row, col int) error {
	if g.Winner != "" {
		return errors.New("game already finished")
	}
	if mark != g.CurrentTurn {
		return errors.New("not your turn")
	}
	if row < borderMin || row > borderMax || col < borderMin || col > borderMax {
		return errors.New("invalid move")
	}
	if g.Board[row][col] != None {
		return errors.New("cell already occupied")
	}

	g.Board[row][col] = g.CurrentTurn
	if g.CurrentTurn == PlayerX {
		g.CurrentTurn = PlayerO
	} else {
		g.CurrentTurn = PlayerX
	}

	g.Winner = g.checkWinner()
	return nil
}

func (g *tictactoeGame) Reset() {
	g.Board = [3][3]PlayerMark{}
	g.CurrentTurn = PlayerX
	g.Winner = ""
}

// BoardAsStrings converts the board for the wire format.
func (g *tictactoeGame) BoardAsStrings() [3][3]string {
	var board [3][3]string
	for r := range [3]int{} {
		for c := range [3]int{} {
			board[r][c] = string(g.Board[r][c])
		}
	}
	return board
}

func (g *tictactoeGame) checkWinner() string {
	// Check rows
	for i := range [3]int{} {
		if g.Board[i][0] != None && g.Board[i][0] == g.Board[i][1] && g.Board[i][1] == g.Board[i][2] {
			return string(g.Board[i][0])
		}
	}

	// Check columns
	for i := range [3]int{} {
		if g.Board[0][i] != None && g.Board[0][i] == g.Board[1][i] && g.Board[1][i] == g.Board[2][i] {
			return string(g.Board[0][i])
		}
	}

	// Check diagonals
	if g.Board[0][0] != None && g.Board[0][0] == g.Board[1][1] && g.Board[1][1] == g.Board[2][2] {
		return string(g.Board[0][0])
	}
	if g.Board[0][2] != None && g.Board[0][2] == g.Board[1][1] && g.Board[1][1] == g.Board[2][0] {
		return string(g.Board[0][2])
	}

	if g.isDraw() {
		return Draw
	}

	return ""
}

// isDraw checks if the game is a draw.
func (g *tictactoeGame) isDraw() bool {
	for r := range [3]int{} {
		for c := range [3]int{} {
			if g.Board[r][c] == None {
				return false
			}
		}
	}
	return true
}
