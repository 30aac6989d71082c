package entity

import (
	"fmt"

	"github.com/solihah-a/tictactoev4/internal/apperror"
)

const (
	CellEmpty     = 0
	CellPlayerOne = 1
	CellPlayerTwo = 2

	BoardSide  = 3
	BoardCells = BoardSide * BoardSide

	// NoMove is reported when there is no pending move to deliver.
	NoMove = -1
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// GameSession is the authoritative per-game state held by the server.
// PlayerOne is always the invitation sender and makes the first move.
type GameSession struct {
	ID        string          `json:"id"`
	PlayerOne string          `json:"player1"`
	PlayerTwo string          `json:"player2"`
	Board     [BoardCells]int `json:"board"`
	Turn      int             `json:"turn"`
	Active    bool            `json:"active"`
	Message   string          `json:"message"`

	// The last played cell not yet delivered to the opponent.
	PendingMove  int `json:"pendingMove"`
	PendingMover int `json:"pendingMover"`

	// Players that already sent their terminal COMPLETE_GAME/ABORT_GAME.
	ClosedBy []string `json:"closedBy,omitempty"`
}

func NewGameSession(id, playerOne, playerTwo string) *GameSession {
	return &GameSession{
		ID:          id,
		PlayerOne:   playerOne,
		PlayerTwo:   playerTwo,
		Turn:        CellPlayerOne,
		Active:      true,
		PendingMove: NoMove,
	}
}

// PlayerNumber - maps a username to 1 or 2, or 0 for a stranger.
func (that *GameSession) PlayerNumber(username string) int {
	switch username {
	case that.PlayerOne:
		return CellPlayerOne
	case that.PlayerTwo:
		return CellPlayerTwo
	default:
		return 0
	}
}

// ApplyMove - plays cell for player, flips the turn and re-evaluates the
// outcome. Rejected moves leave the session untouched.
func (that *GameSession) ApplyMove(player, cell int) error {
	if !that.Active {
		return apperror.ErrGameNotActive
	}

	if cell < 0 || cell >= BoardCells {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != player {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != CellEmpty {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = player
	that.PendingMove = cell
	that.PendingMover = player

	if winner := that.Outcome(); winner != 0 {
		that.Active = false
		that.Turn = 0
		return nil
	}

	if that.Turn == CellPlayerOne {
		that.Turn = CellPlayerTwo
	} else {
		that.Turn = CellPlayerOne
	}

	return nil
}

// Outcome - 0 while the game is open, 1 or 2 for a winner, 3 for a draw.
func (that *GameSession) Outcome() int {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != CellEmpty && a == b && b == c {
			return a
		}
	}

	for _, cell := range that.Board {
		if cell == CellEmpty {
			return 0
		}
	}

	return BoardSide
}

// TakePendingMove - hands the stored move to the opponent exactly once.
func (that *GameSession) TakePendingMove(player int) (int, bool) {
	if that.PendingMove == NoMove || that.PendingMover == player {
		return NoMove, false
	}

	move := that.PendingMove
	that.PendingMove = NoMove
	that.PendingMover = 0

	return move, true
}

// Abort - marks the session abandoned by username.
func (that *GameSession) Abort(username string) {
	that.Active = false
	that.Turn = 0
	that.PendingMove = NoMove
	that.PendingMover = 0
	that.Message = fmt.Sprintf("%s has abandoned the game", username)
	that.Close(username)
}

// Close - records username's terminal notification; reports whether both
// sides have now signed off so the record can be dropped.
func (that *GameSession) Close(username string) bool {
	for _, name := range that.ClosedBy {
		if name == username {
			return len(that.ClosedBy) == 2
		}
	}

	that.ClosedBy = append(that.ClosedBy, username)

	return len(that.ClosedBy) == 2
}
