package devserver

import (
	"math/rand/v2"
)

// botMove picks the bot's next tic-tac-toe move: win if possible, block
// if needed, then prefer center, corners, sides.
func botMove(board [3][3]PlayerMark, botMark PlayerMark) (row, col int) {
	opponentMark := PlayerX
	if botMark == PlayerX {
		opponentMark = PlayerO
	}

	// 1. Win: Check if the bot can win in the next move
	nextRow, nextCol, canWin := findWinningMove(board, botMark)
	if canWin {
		return nextRow, nextCol
	}

	// 2. Block: Check if the opponent is about to win and block them
	nextRow, nextCol, canBlock := findWinningMove(board, opponentMark)
	if canBlock {
		return nextRow, nextCol
	}

	// 3. Center: Take the center if it's available
	if board[1][1] == None {
		return 1, 1
	}

	// 4. Corners: Take an available corner randomly
	availableCorners := [][2]int{}
	corners := [][2]int{{0, 0}, {0, 2}, {2, 0}, {2, 2}}
	for _, corner := range corners {
		if board[corner[0]][corner[1]] == None {
			availableCorners = append(availableCorners, corner)
		}
	}
	if len(availableCorners) > 0 {
		randomCorner := availableCorners[rand.IntN(len(availableCorners))]
		return randomCorner[0], randomCorner[1]
	}

	// 5. Sides: Take any available side randomly
	availableSides := [][2]int{}
	sides := [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}}
	for _, side := range sides {
		if board[side[0]][side[1]] == None {
			availableSides = append(availableSides, side)
		}
	}
	if len(availableSides) > 0 {
		randomSide := availableSides[rand.IntN(len(availableSides))]
		return randomSide[0], randomSide[1]
	}

	return -1, -1
}

// findWinningMove checks if a player has a potential winning move (two in a row with an empty third).
func findWinningMove(board [3][3]PlayerMark, mark PlayerMark) (row, col int, found bool) {
	// Check rows
	for r := range [3]int{} {
		if board[r][0] == mark && board[r][1] == mark && board[r][2] == None {
			return r, 2, true
		}
		if board[r][0] == mark && board[r][2] == mark && board[r][1] == None {
			return r, 1, true
		}
		if board[r][1] == mark && board[r][2] == mark && board[r][0] == None {
			return r, 0, true
		}
	}

	// Check columns
	for c := range [3]int{} {
		if board[0][c] == mark && board[1][c] == mark && board[2][c] == None {
			return 2, c, true
		}
		if board[0][c] == mark && board[2][c] == mark && board[1][c] == None {
			return 1, c, true
		}
		if board[1][c] == mark && board[2][c] == mark && board[0][c] == None {
			return 0, c, true
		}
	}

	// Check diagonals
	if board[0][0] == mark && board[1][1] == mark && board[2][2] == None {
		return 2, 2, true
	}
	if board[0][0] == mark && board[2][2] == mark && board[1][1] == None {
		return 1, 1, true
	}
	if board[1][1] == mark && board[2][2] == mark && board[0][0] == None {
		return 0, 0, true
	}
	if board[0][2] == mark && board[1][1] == mark && board[2][0] == None {
		return 2, 0, true
	}
	if board[0][2] == mark && board[2][0] == mark && board[1][1] == None {
		return 1, 1, true
	}
	if board[1][1] == mark && board[2][0] == mark && board[0][2] == None {
		return 0, 2, true
	}

	return -1, -1, false
}
