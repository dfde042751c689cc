package tictactoe

import "github.com/rocketscienceinc/tictactoe-arena/internal/entity"

const BoardSize = 9

// WinCombos are checked in this order; WinCheck reports the first match.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board holds either no cells (before the first round) or exactly BoardSize cells.
type Board []entity.Mark

func NewBoard() Board {
	return make(Board, BoardSize)
}

func (that Board) Started() bool {
	return len(that) == BoardSize
}

// IsFree reports whether the position is on the board and not yet played.
func (that Board) IsFree(position int) bool {
	if position < 0 || position >= len(that) {
		return false
	}

	return that[position] == entity.MarkUndefined
}

func (that Board) Clone() Board {
	if that == nil {
		return nil
	}

	board := make(Board, len(that))
	copy(board, that)

	return board
}

// WinCheck returns the first winning triple held by mark.
func WinCheck(board Board, mark entity.Mark) ([]int, bool) {
	if mark == entity.MarkUndefined || !board.Started() {
		return nil, false
	}

	for _, combo := range WinCombos {
		if board[combo[0]] == mark && board[combo[1]] == mark && board[combo[2]] == mark {
			return []int{combo[0], combo[1], combo[2]}, true
		}
	}

	return nil, false
}

// IsFull reports whether every cell is marked.
func IsFull(board Board) bool {
	if !board.Started() {
		return false
	}

	for _, cell := range board {
		if cell == entity.MarkUndefined {
			return false
		}
	}

	return true
}

// Opponent returns the other mark.
func Opponent(mark entity.Mark) entity.Mark {
	if mark == entity.MarkO {
		return entity.MarkX
	}
	return entity.MarkO
}
