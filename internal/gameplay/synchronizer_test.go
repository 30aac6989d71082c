package gameplay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
	"github.com/solihah-a/tictactoev4/internal/protocol"
)

var errConnectionDown = errors.New("connection down")

type gamingReply struct {
	response *protocol.GamingResponse
	err      error
}

// fakeConn scripts the gaming replies one poll at a time; once the script
// runs out it reports "no move yet".
type fakeConn struct {
	mu       sync.Mutex
	script   []gamingReply
	requests []protocol.Request
}

func (that *fakeConn) SendRequest(_ context.Context, request *protocol.Request) (*protocol.Response, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.requests = append(that.requests, *request)

	return protocol.Success(""), nil
}

func (that *fakeConn) SendGamingRequest(_ context.Context, request *protocol.Request) (*protocol.GamingResponse, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.requests = append(that.requests, *request)

	if len(that.script) == 0 {
		return &protocol.GamingResponse{
			Response: *protocol.Success(""),
			Move:     entity.NoMove,
			Active:   true,
		}, nil
	}

	reply := that.script[0]
	that.script = that.script[1:]

	return reply.response, reply.err
}

func (that *fakeConn) countByType(reqType protocol.RequestType) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	count := 0
	for _, request := range that.requests {
		if request.Type == reqType {
			count++
		}
	}
	return count
}

type recordingHandler struct {
	mu         sync.Mutex
	moves      [][2]int
	terminated []string
}

func (that *recordingHandler) OpponentMoved(row, col int) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.moves = append(that.moves, [2]int{row, col})
}

func (that *recordingHandler) GameTerminated(message string) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.terminated = append(that.terminated, message)
}

func (that *recordingHandler) moveCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return len(that.moves)
}

func (that *recordingHandler) terminations() []string {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]string(nil), that.terminated...)
}

func newTestSynchronizer(conn *fakeConn, player int) (*Synchronizer, *recordingHandler) {
	handler := &recordingHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	synchronizer := NewSynchronizer(logger, conn, NewTicTacToe(player), handler, 10*time.Millisecond)
	return synchronizer, handler
}

func TestSynchronizer_AppliesOpponentMove(t *testing.T) {
	// Given: player two waiting on player one, who played the center
	conn := &fakeConn{script: []gamingReply{
		{response: &protocol.GamingResponse{Response: *protocol.Success(""), Move: 4, Active: true}},
	}}
	synchronizer, handler := newTestSynchronizer(conn, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go synchronizer.Run(ctx)

	// Then: the polled move lands at row 1, col 1 exactly once
	require.Eventually(t, func() bool { return handler.moveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [2]int{1, 1}, handler.moves[0])
	assert.Equal(t, entity.CellPlayerOne, synchronizer.Game().Cell(1, 1))
	assert.True(t, synchronizer.Game().IsMyTurn())

	// And once it is our turn, polling pauses
	polled := conn.countByType(protocol.TypeRequestMove)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polled, conn.countByType(protocol.TypeRequestMove))
}

func TestSynchronizer_RetriesAfterTransportFailure(t *testing.T) {
	// Given: the first poll dies on the wire, the second succeeds
	conn := &fakeConn{script: []gamingReply{
		{err: errConnectionDown},
		{response: &protocol.GamingResponse{Response: *protocol.Success(""), Move: 0, Active: true}},
	}}
	synchronizer, handler := newTestSynchronizer(conn, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go synchronizer.Run(ctx)

	// Then: the loop survives the failure and applies the move next tick
	require.Eventually(t, func() bool { return handler.moveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, entity.CellPlayerOne, synchronizer.Game().Cell(0, 0))
	assert.GreaterOrEqual(t, conn.countByType(protocol.TypeRequestMove), 2)
}

func TestSynchronizer_TerminatesOnInactiveGame(t *testing.T) {
	// Given: the server reports the game dead
	conn := &fakeConn{script: []gamingReply{
		{response: &protocol.GamingResponse{
			Response: protocol.Response{Status: protocol.StatusSuccess, Message: "alice has abandoned the game"},
			Move:     entity.NoMove,
			Active:   false,
		}},
	}}
	synchronizer, handler := newTestSynchronizer(conn, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go synchronizer.Run(ctx)

	// Then: the termination is surfaced once, with the server's message
	require.Eventually(t, func() bool { return len(handler.terminations()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, handler.terminations()[0], "alice")

	// And no further REQUEST_MOVE is scheduled for this game
	polled := conn.countByType(protocol.TypeRequestMove)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polled, conn.countByType(protocol.TypeRequestMove))

	// And local input is disabled
	err := synchronizer.PlayLocal(ctx, 0, 0)
	assert.ErrorIs(t, err, apperror.ErrGameNotActive)

	// And teardown now reports completion, not abandonment
	synchronizer.Stop(ctx)
	assert.Equal(t, 1, conn.countByType(protocol.TypeCompleteGame))
	assert.Zero(t, conn.countByType(protocol.TypeAbortGame))
}

func TestSynchronizer_StopAbortsLiveGame(t *testing.T) {
	// Given: a live game being polled
	conn := &fakeConn{}
	synchronizer, _ := newTestSynchronizer(conn, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		synchronizer.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return conn.countByType(protocol.TypeRequestMove) > 0 }, time.Second, 5*time.Millisecond)

	// When: the view closes before the game ends, twice
	synchronizer.Stop(ctx)
	synchronizer.Stop(ctx)

	// Then: exactly one ABORT_GAME went out and the loop has exited
	<-done
	assert.Equal(t, 1, conn.countByType(protocol.TypeAbortGame))
	assert.Zero(t, conn.countByType(protocol.TypeCompleteGame))

	// And no tick fires after teardown
	polled := conn.countByType(protocol.TypeRequestMove)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polled, conn.countByType(protocol.TypeRequestMove))
}

func TestSynchronizer_PlayLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("A valid local move is sent to the server", func(t *testing.T) {
		conn := &fakeConn{}
		synchronizer, _ := newTestSynchronizer(conn, 1)

		require.NoError(t, synchronizer.PlayLocal(ctx, 1, 1))

		assert.Equal(t, 1, conn.countByType(protocol.TypeSendMove))
		assert.Equal(t, "4", conn.requests[0].Data)
		assert.Equal(t, entity.CellPlayerOne, synchronizer.Game().Cell(1, 1))
	})

	t.Run("An out-of-turn move never reaches the wire", func(t *testing.T) {
		conn := &fakeConn{}
		synchronizer, _ := newTestSynchronizer(conn, 2)

		err := synchronizer.PlayLocal(ctx, 1, 1)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Zero(t, conn.countByType(protocol.TypeSendMove))
	})

	t.Run("An occupied cell never reaches the wire", func(t *testing.T) {
		conn := &fakeConn{}
		synchronizer, _ := newTestSynchronizer(conn, 1)
		require.NoError(t, synchronizer.PlayLocal(ctx, 0, 0))

		// opponent replies on another cell to hand the turn back
		conn.script = append(conn.script, gamingReply{
			response: &protocol.GamingResponse{Response: *protocol.Success(""), Move: 4, Active: true},
		})
		synchronizer.pollOnce(ctx)

		err := synchronizer.PlayLocal(ctx, 0, 0)

		assert.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, 1, conn.countByType(protocol.TypeSendMove))
	})
}
