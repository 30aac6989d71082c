package pairing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/solihah-a/tictactoev4/internal/entity"
	"github.com/solihah-a/tictactoev4/internal/protocol"
)

// Handler receives matchmaking updates for rendering. Calls arrive from
// the poller's goroutine, one at a time.
type Handler interface {
	RosterUpdated(users []*entity.User)
	InvitationReceived(event *entity.Event)
	InvitationAccepted(event *entity.Event)
	InvitationDeclined(event *entity.Event)
}

type connection interface {
	SendRequest(ctx context.Context, request *protocol.Request) (*protocol.Response, error)
	SendPairingRequest(ctx context.Context, request *protocol.Request) (*protocol.PairingResponse, error)
}

// Poller keeps the pairing screen current: it issues UPDATE_PAIRING on a
// fixed interval, surfaces incoming invitations and the fate of the ones
// we sent, and acknowledges each observed invitation response so the
// server can forget it. Polling pauses while an invitation is on screen
// or a game is starting, and resumes when the user comes back.
type Poller struct {
	logger   *slog.Logger
	conn     connection
	handler  Handler
	interval time.Duration

	mu        sync.Mutex
	suspended bool
}

func NewPoller(logger *slog.Logger, conn connection, handler Handler, interval time.Duration) *Poller {
	return &Poller{
		logger:   logger.With("component", "pairing-poller"),
		conn:     conn,
		handler:  handler,
		interval: interval,
	}
}

// Run - the poll loop; blocks until ctx cancellation. A failed poll is
// logged and retried on the next tick, never fatal.
func (that *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.pollOnce(ctx)
		}
	}
}

// SendInvitation - asks the given user for a game. The answer comes back
// through a later poll as an invitation response.
func (that *Poller) SendInvitation(ctx context.Context, opponent string) error {
	response, err := that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeSendInvitation, opponent))
	if err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}

	if !response.IsSuccess() {
		return fmt.Errorf("invitation refused: %s", response.Message)
	}

	return nil
}

// AcceptInvitation - accepts the surfaced invitation; on success the
// caller enters the game as player two and polling stays paused.
func (that *Poller) AcceptInvitation(ctx context.Context, event *entity.Event) error {
	response, err := that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeAcceptInvitation, strconv.Itoa(event.ID)))
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	if !response.IsSuccess() {
		return fmt.Errorf("acceptance refused: %s", response.Message)
	}

	return nil
}

// DeclineInvitation - declines the surfaced invitation and resumes
// polling for the roster.
func (that *Poller) DeclineInvitation(ctx context.Context, event *entity.Event) error {
	response, err := that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeDeclineInvitation, strconv.Itoa(event.ID)))
	if err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}

	if !response.IsSuccess() {
		return fmt.Errorf("decline refused: %s", response.Message)
	}

	that.Resume()

	return nil
}

// Resume - re-enables polling, typically on return from a finished game.
func (that *Poller) Resume() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.suspended = false
}

func (that *Poller) suspend() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.suspended = true
}

func (that *Poller) shouldUpdatePairing() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return !that.suspended
}

func (that *Poller) pollOnce(ctx context.Context) {
	if !that.shouldUpdatePairing() {
		return
	}

	response, err := that.conn.SendPairingRequest(ctx, protocol.NewRequest(protocol.TypeUpdatePairing, ""))
	if err != nil {
		that.logger.Warn("pairing update failed, will retry", "error", err)
		return
	}

	if !response.IsSuccess() {
		that.logger.Warn("pairing update rejected", "message", response.Message)
		return
	}

	that.handler.RosterUpdated(response.AvailableUsers)

	if event := response.Invitation; event != nil {
		// leave the invitation on screen until the user answers it
		that.suspend()
		that.handler.InvitationReceived(event)
		return
	}

	if event := response.InvitationResponse; event != nil {
		that.acknowledge(ctx, event)

		switch {
		case event.IsAccepted():
			that.suspend()
			that.handler.InvitationAccepted(event)
		default:
			that.handler.InvitationDeclined(event)
		}
	}
}

// acknowledge - receipt of a terminal invitation response. The server
// deletes the record, so the same response never comes back on a later
// poll.
func (that *Poller) acknowledge(ctx context.Context, event *entity.Event) {
	response, err := that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeAcknowledgeResponse, strconv.Itoa(event.ID)))
	if err != nil {
		that.logger.Warn("failed to acknowledge invitation response", "eventId", event.ID, "error", err)
		return
	}

	if !response.IsSuccess() {
		that.logger.Warn("acknowledgement rejected", "eventId", event.ID, "message", response.Message)
	}
}
