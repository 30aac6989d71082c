package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

type eventRepo interface {
	CreatePending(ctx context.Context, sender, opponent string) (*entity.Event, error)
	GetByID(ctx context.Context, id int) (*entity.Event, error)
	MarkResolved(ctx context.Context, event *entity.Event) error
	Acknowledge(ctx context.Context, event *entity.Event) error
	NextInvitationFor(ctx context.Context, username string) (*entity.Event, error)
	NextResponseFor(ctx context.Context, username string) (*entity.Event, error)
}

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.GameSession) error
	GetByID(ctx context.Context, id string) (*entity.GameSession, error)
	GetByPlayer(ctx context.Context, username string) (*entity.GameSession, error)
	Delete(ctx context.Context, session *entity.GameSession) error
}

// PairingRoster is one UPDATE_PAIRING snapshot: who can be invited, at most
// one incoming invitation and at most one response to a sent invitation.
type PairingRoster struct {
	AvailableUsers     []*entity.User
	Invitation         *entity.Event
	InvitationResponse *entity.Event
}

// PairingUseCase is the matchmaking engine: accounts, presence, the
// invitation state machine and the handoff into a game session.
type PairingUseCase struct {
	logger   *slog.Logger
	presence *Presence

	userRepo    userRepo
	eventRepo   eventRepo
	sessionRepo sessionRepo
}

func NewPairingUseCase(logger *slog.Logger, presence *Presence, users userRepo, events eventRepo, sessions sessionRepo) *PairingUseCase {
	return &PairingUseCase{
		logger:      logger,
		presence:    presence,
		userRepo:    users,
		eventRepo:   events,
		sessionRepo: sessions,
	}
}

func (that *PairingUseCase) Register(ctx context.Context, user *entity.User) error {
	if user.Username == "" || user.Password == "" {
		return errors.New("username and password are required")
	}

	if err := that.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	that.logger.Info("user registered", "username", user.Username)

	return nil
}

func (that *PairingUseCase) Login(ctx context.Context, user *entity.User) error {
	existing, err := that.userRepo.GetByUsername(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.Password != user.Password {
		return apperror.ErrWrongPassword
	}

	if !that.presence.Login(user.Username) {
		return fmt.Errorf("%w: %s", apperror.ErrLoggedIn, user.Username)
	}

	that.logger.Info("user logged in", "username", user.Username)

	return nil
}

func (that *PairingUseCase) Logout(username string) {
	that.presence.Logout(username)
	that.logger.Info("user logged out", "username", username)
}

// SendInvitation - creates a PENDING event from sender to opponent. Fails
// when the opponent is unavailable or a pending invitation already links
// the two users in either direction; on a mutual invite race the first
// write (the lower event id) wins.
func (that *PairingUseCase) SendInvitation(ctx context.Context, sender, opponent string) (*entity.Event, error) {
	if sender == opponent {
		return nil, apperror.ErrInviteYourself
	}

	if !that.presence.IsAvailable(opponent) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUserBusy, opponent)
	}

	event, err := that.eventRepo.CreatePending(ctx, sender, opponent)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	that.logger.Info("invitation sent", "eventID", event.ID, "sender", sender, "opponent", opponent)

	return event, nil
}

// AcceptInvitation - resolves the event and opens the game session, with
// the invitation sender as player one.
func (that *PairingUseCase) AcceptInvitation(ctx context.Context, username string, eventID int) (*entity.GameSession, error) {
	event, err := that.resolve(ctx, username, eventID, entity.EventAccepted)
	if err != nil {
		return nil, err
	}

	session := entity.NewGameSession(uuid.NewString(), event.Sender, event.Opponent)
	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	that.presence.SetBusy(event.Sender, true)
	that.presence.SetBusy(event.Opponent, true)

	that.logger.Info("game session opened", "sessionID", session.ID, "player1", event.Sender, "player2", event.Opponent)

	return session, nil
}

func (that *PairingUseCase) DeclineInvitation(ctx context.Context, username string, eventID int) error {
	_, err := that.resolve(ctx, username, eventID, entity.EventDeclined)
	return err
}

// AcknowledgeResponse - the original sender confirms it has observed the
// terminal outcome, so the event record can be dropped.
func (that *PairingUseCase) AcknowledgeResponse(ctx context.Context, username string, eventID int) error {
	event, err := that.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}

	if event.Sender != username {
		return fmt.Errorf("%w: event %d", apperror.ErrEventNotYours, eventID)
	}

	if event.IsPending() {
		return fmt.Errorf("%w: event %d is still pending", apperror.ErrEventNotFound, eventID)
	}

	if err = that.eventRepo.Acknowledge(ctx, event); err != nil {
		return fmt.Errorf("failed to acknowledge event: %w", err)
	}

	return nil
}

// UpdatePairing - answers one poll tick for username.
func (that *PairingUseCase) UpdatePairing(ctx context.Context, username string) (*PairingRoster, error) {
	if !that.presence.IsOnline(username) {
		return nil, apperror.ErrNotLoggedIn
	}

	roster := &PairingRoster{AvailableUsers: []*entity.User{}}

	for _, name := range that.presence.Available(username) {
		user, err := that.userRepo.GetByUsername(ctx, name)
		if err != nil {
			that.logger.Warn("skipping unknown online user", "username", name, "error", err)
			continue
		}
		roster.AvailableUsers = append(roster.AvailableUsers, user.WithoutPassword())
	}

	invitation, err := that.eventRepo.NextInvitationFor(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to read invitations: %w", err)
	}
	roster.Invitation = invitation

	response, err := that.eventRepo.NextResponseFor(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to read invitation responses: %w", err)
	}
	roster.InvitationResponse = response

	return roster, nil
}

func (that *PairingUseCase) resolve(ctx context.Context, username string, eventID int, status string) (*entity.Event, error) {
	event, err := that.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if event.Opponent != username {
		return nil, fmt.Errorf("%w: event %d", apperror.ErrEventNotYours, eventID)
	}

	if err = event.Resolve(status); err != nil {
		return nil, err
	}

	if err = that.eventRepo.MarkResolved(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}

	that.logger.Info("invitation resolved", "eventID", event.ID, "status", event.Status)

	return event, nil
}
