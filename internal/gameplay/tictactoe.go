package gameplay

import (
	"fmt"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

const Side = entity.BoardSide

// TicTacToe is the local board state machine. It only ever changes through
// Play, so a confirmed move (local or polled from the server) is the sole
// way cells get marked and the turn flips.
type TicTacToe struct {
	player int // which side the local user plays, 1 or 2
	turn   int
	board  [Side][Side]int
	moves  int
}

// NewTicTacToe - a fresh game; player one always opens.
func NewTicTacToe(player int) *TicTacToe {
	return &TicTacToe{
		player: player,
		turn:   entity.CellPlayerOne,
	}
}

func (that *TicTacToe) Player() int { return that.player }
func (that *TicTacToe) Turn() int   { return that.turn }

func (that *TicTacToe) IsMyTurn() bool {
	return that.player == that.turn
}

// Play - marks (row, col) for the side whose turn it is and flips the
// turn. The occupancy check makes a redelivered move harmless: applying it
// a second time is rejected without changing state.
func (that *TicTacToe) Play(row, col int) (int, error) {
	if that.IsGameOver() {
		return 0, apperror.ErrGameFinished
	}

	if row < 0 || row >= Side || col < 0 || col >= Side {
		return 0, fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidCell, row, col)
	}

	if that.board[row][col] != entity.CellEmpty {
		return 0, apperror.ErrCellOccupied
	}

	mark := that.turn
	that.board[row][col] = mark
	that.moves++

	if that.turn == entity.CellPlayerOne {
		that.turn = entity.CellPlayerTwo
	} else {
		that.turn = entity.CellPlayerOne
	}

	return mark, nil
}

func (that *TicTacToe) Cell(row, col int) int {
	return that.board[row][col]
}

// WhoWon - 0 while undecided or drawn, otherwise the winning side.
func (that *TicTacToe) WhoWon() int {
	for i := 0; i < Side; i++ {
		if that.board[i][0] != entity.CellEmpty && that.board[i][0] == that.board[i][1] && that.board[i][1] == that.board[i][2] {
			return that.board[i][0]
		}
		if that.board[0][i] != entity.CellEmpty && that.board[0][i] == that.board[1][i] && that.board[1][i] == that.board[2][i] {
			return that.board[0][i]
		}
	}

	center := that.board[1][1]
	if center != entity.CellEmpty {
		if that.board[0][0] == center && center == that.board[2][2] {
			return center
		}
		if that.board[0][2] == center && center == that.board[2][0] {
			return center
		}
	}

	return 0
}

func (that *TicTacToe) IsDraw() bool {
	return that.moves == Side*Side && that.WhoWon() == 0
}

func (that *TicTacToe) IsGameOver() bool {
	return that.WhoWon() != 0 || that.moves == Side*Side
}

func (that *TicTacToe) Result() string {
	switch winner := that.WhoWon(); {
	case winner == that.player:
		return "You won!"
	case winner != 0:
		return "You lost"
	case that.IsDraw():
		return "It's a draw"
	case that.IsMyTurn():
		return "Your turn"
	default:
		return "Waiting for opponent"
	}
}

// Reset - starts a rematch: the board clears and the local user switches
// sides, so the player who went second opens the next game.
func (that *TicTacToe) Reset() {
	that.board = [Side][Side]int{}
	that.moves = 0
	that.turn = entity.CellPlayerOne
	if that.player == entity.CellPlayerOne {
		that.player = entity.CellPlayerTwo
	} else {
		that.player = entity.CellPlayerOne
	}
}
