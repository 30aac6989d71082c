package apperror

import "errors"

var (
	ErrGameFinished   = errors.New("game is already finished")
	ErrGameNotActive  = errors.New("game is no longer active")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrInvalidCell    = errors.New("invalid cell index")
	ErrNotLoggedIn    = errors.New("user is not logged in")
	ErrLoggedIn       = errors.New("user is already logged in")
	ErrUserNotFound   = errors.New("user not found")
	ErrWrongPassword  = errors.New("wrong password")
	ErrUserExists     = errors.New("username is already taken")
	ErrUserBusy       = errors.New("user is not available for pairing")
	ErrEventNotFound  = errors.New("event not found")
	ErrEventNotYours  = errors.New("event is not addressed to you")
	ErrEventResolved  = errors.New("invitation is already resolved")
	ErrInvitePending  = errors.New("a pending invitation already exists between these users")
	ErrNoActiveGame   = errors.New("no active game for this user")
	ErrInviteYourself = errors.New("can't send an invitation to yourself")
)
