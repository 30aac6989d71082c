package gameplay

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/protocol"
)

// Handler receives board changes for rendering. Calls arrive from the
// synchronizer's goroutine, one at a time.
type Handler interface {
	OpponentMoved(row, col int)
	GameTerminated(message string)
}

type connection interface {
	SendRequest(ctx context.Context, request *protocol.Request) (*protocol.Response, error)
	SendGamingRequest(ctx context.Context, request *protocol.Request) (*protocol.GamingResponse, error)
}

// Synchronizer drives one active game view: it polls the server for the
// opponent's moves while it is their turn, applies confirmed moves to the
// local board, and detects the game ending under it. All board mutation
// happens under its mutex, so the view reads a consistent state.
type Synchronizer struct {
	logger   *slog.Logger
	conn     connection
	handler  Handler
	interval time.Duration

	mu         sync.Mutex
	game       *TicTacToe
	terminated bool

	quit     chan struct{}
	stopOnce sync.Once
}

func NewSynchronizer(logger *slog.Logger, conn connection, game *TicTacToe, handler Handler, interval time.Duration) *Synchronizer {
	return &Synchronizer{
		logger:   logger.With("component", "synchronizer"),
		conn:     conn,
		handler:  handler,
		interval: interval,
		game:     game,
		quit:     make(chan struct{}),
	}
}

// Run - the poll loop; blocks until Stop or ctx cancellation. A failed
// poll is logged and retried on the next tick, never fatal.
func (that *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-that.quit:
			return
		case <-ticker.C:
			that.pollOnce(ctx)
		}
	}
}

// Stop - cancels future ticks and notifies the server exactly once:
// ABORT_GAME when the game was still running, COMPLETE_GAME when it had
// already ended. Safe to call multiple times and race-free against an
// in-flight poll, whose result is discarded once the quit flag is down.
func (that *Synchronizer) Stop(ctx context.Context) {
	that.stopOnce.Do(func() {
		close(that.quit)

		reqType := protocol.TypeCompleteGame
		if !that.gameOver() {
			reqType = protocol.TypeAbortGame
		}

		if _, err := that.conn.SendRequest(ctx, protocol.NewRequest(reqType, "")); err != nil {
			that.logger.Error("failed to send terminal notification", "type", reqType, "error", err)
		}
	})
}

// PlayLocal - the local user's move. Invalid moves are rejected against
// the board before anything touches the wire.
func (that *Synchronizer) PlayLocal(ctx context.Context, row, col int) error {
	that.mu.Lock()

	if that.terminated {
		that.mu.Unlock()
		return apperror.ErrGameNotActive
	}

	if !that.game.IsMyTurn() {
		that.mu.Unlock()
		return apperror.ErrNotYourTurn
	}

	if _, err := that.game.Play(row, col); err != nil {
		that.mu.Unlock()
		return err
	}

	move := row*Side + col
	that.mu.Unlock()

	response, err := that.conn.SendGamingRequest(ctx, protocol.NewRequest(protocol.TypeSendMove, strconv.Itoa(move)))
	if err != nil {
		that.logger.Error("failed to send move", "move", move, "error", err)
		return err
	}

	if !response.IsSuccess() {
		that.logger.Error("server rejected move", "move", move, "message", response.Message)
	}

	return nil
}

// Game - read access for the owning view.
func (that *Synchronizer) Game() *TicTacToe {
	return that.game
}

func (that *Synchronizer) pollOnce(ctx context.Context) {
	if !that.shouldPoll() {
		return
	}

	response, err := that.conn.SendGamingRequest(ctx, protocol.NewRequest(protocol.TypeRequestMove, ""))
	if err != nil {
		that.logger.Warn("poll failed, will retry", "error", err)
		return
	}

	if !response.IsSuccess() {
		that.logger.Warn("poll rejected", "message", response.Message)
		return
	}

	that.apply(response)
}

// shouldPoll - only while the game runs and we are waiting on the
// opponent; our own moves come from local input, not from polling.
func (that *Synchronizer) shouldPoll() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.terminated || that.game.IsGameOver() {
		return false
	}

	return !that.game.IsMyTurn()
}

func (that *Synchronizer) apply(response *protocol.GamingResponse) {
	that.mu.Lock()
	defer that.mu.Unlock()

	select {
	case <-that.quit:
		// view tore down while the request was in flight
		return
	default:
	}

	if !response.Active {
		that.terminated = true
		that.handler.GameTerminated(response.Message)
		return
	}

	if response.Move < 0 || response.Move >= Side*Side {
		return
	}

	row, col := response.Move/Side, response.Move%Side
	if _, err := that.game.Play(row, col); err != nil {
		// a redelivered move lands on its own mark; nothing to do
		that.logger.Debug("ignoring unplayable polled move", "move", response.Move, "error", err)
		return
	}

	that.handler.OpponentMoved(row, col)
}

func (that *Synchronizer) gameOver() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.terminated || that.game.IsGameOver()
}
