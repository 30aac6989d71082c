package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

// MoveUpdate is what one REQUEST_MOVE poll yields: the opponent's move if
// one is waiting (NoMove otherwise) and whether the game can still accept
// moves. Message carries the server's explanation once Active is false.
type MoveUpdate struct {
	Move    int
	Active  bool
	Message string
}

// GameplayUseCase owns the server-side turn rules for live sessions.
type GameplayUseCase struct {
	logger   *slog.Logger
	presence *Presence

	sessionRepo sessionRepo
}

func NewGameplayUseCase(logger *slog.Logger, presence *Presence, sessions sessionRepo) *GameplayUseCase {
	return &GameplayUseCase{
		logger:      logger,
		presence:    presence,
		sessionRepo: sessions,
	}
}

// SendMove - applies username's move to their live session. The returned
// flag is the session's state after the move: false once this move won or
// drew the game.
func (that *GameplayUseCase) SendMove(ctx context.Context, username string, cell int) (bool, error) {
	session, err := that.sessionRepo.GetByPlayer(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to get session: %w", err)
	}

	player := session.PlayerNumber(username)
	if player == 0 {
		return false, fmt.Errorf("%w: %s", apperror.ErrNoActiveGame, username)
	}

	if err = session.ApplyMove(player, cell); err != nil {
		return false, err
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	that.logger.Debug("move accepted", "sessionID", session.ID, "player", player, "cell", cell)

	return session.Active, nil
}

// RequestMove - answers one gameplay poll tick. A stored opponent move is
// delivered exactly once; it is reported with Active set so the final move
// of a finished game still reaches the other board before the client
// notices the game is over on its own.
func (that *GameplayUseCase) RequestMove(ctx context.Context, username string) (*MoveUpdate, error) {
	session, err := that.sessionRepo.GetByPlayer(ctx, username)
	if errors.Is(err, apperror.ErrNoActiveGame) {
		return &MoveUpdate{Move: entity.NoMove, Active: false, Message: "game is no longer available"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	player := session.PlayerNumber(username)

	if move, ok := session.TakePendingMove(player); ok {
		if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}

		return &MoveUpdate{Move: move, Active: true}, nil
	}

	if !session.Active {
		return &MoveUpdate{Move: entity.NoMove, Active: false, Message: session.Message}, nil
	}

	return &MoveUpdate{Move: entity.NoMove, Active: true}, nil
}

// AbortGame - username walks away from a game that is still live.
func (that *GameplayUseCase) AbortGame(ctx context.Context, username string) error {
	return that.closeSession(ctx, username, true)
}

// CompleteGame - username signs off a game that already ended.
func (that *GameplayUseCase) CompleteGame(ctx context.Context, username string) error {
	return that.closeSession(ctx, username, false)
}

// HandleDisconnect - a dropped connection mid-game counts as an abort so
// the opponent's next poll learns about the abandonment.
func (that *GameplayUseCase) HandleDisconnect(ctx context.Context, username string) {
	if err := that.closeSession(ctx, username, true); err != nil && !errors.Is(err, apperror.ErrNoActiveGame) {
		that.logger.Error("failed to abort game on disconnect", "username", username, "error", err)
	}
}

func (that *GameplayUseCase) closeSession(ctx context.Context, username string, abort bool) error {
	session, err := that.sessionRepo.GetByPlayer(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if abort && session.Active {
		session.Abort(username)
	}

	done := session.Close(username)
	that.presence.SetBusy(username, false)

	if done {
		if err = that.sessionRepo.Delete(ctx, session); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		that.logger.Info("game session closed", "sessionID", session.ID)

		return nil
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}
