package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/solihah-a/tictactoev4/internal/protocol"
)

// ErrNoResponse covers every failure mode of one request-response cycle:
// dial errors, write/read errors, timeouts and undecodable replies. Callers
// treat it as "retry later", never as a protocol answer.
var ErrNoResponse = errors.New("no usable response from server")

const defaultReadTimeout = 10 * time.Second

// Connection owns one transport session to the game server. It serializes
// one request at a time: concurrent callers queue on the mutex so frames
// never interleave on the wire. The connection dials lazily and fails
// closed: any I/O error tears the socket down and the next call redials.
type Connection struct {
	logger      *slog.Logger
	addr        string
	readTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func New(logger *slog.Logger, addr string, readTimeout time.Duration) *Connection {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	return &Connection{
		logger:      logger.With("component", "connection"),
		addr:        addr,
		readTimeout: readTimeout,
	}
}

// SendRequest - sends one request and decodes the base response shape.
func (that *Connection) SendRequest(ctx context.Context, request *protocol.Request) (*protocol.Response, error) {
	var response protocol.Response
	if err := that.roundTrip(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SendPairingRequest - sends one request and decodes the pairing variant.
func (that *Connection) SendPairingRequest(ctx context.Context, request *protocol.Request) (*protocol.PairingResponse, error) {
	var response protocol.PairingResponse
	if err := that.roundTrip(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SendGamingRequest - sends one request and decodes the gaming variant.
func (that *Connection) SendGamingRequest(ctx context.Context, request *protocol.Request) (*protocol.GamingResponse, error) {
	var response protocol.GamingResponse
	if err := that.roundTrip(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Close - releases the socket; safe to call any number of times.
func (that *Connection) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.invalidate()

	return nil
}

func (that *Connection) roundTrip(ctx context.Context, request *protocol.Request, out any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	if err := protocol.WriteFrame(that.conn, request); err != nil {
		that.invalidate()
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	if err := that.conn.SetReadDeadline(time.Now().Add(that.readTimeout)); err != nil {
		that.invalidate()
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	if err := protocol.DecodeFrame(that.conn, out); err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			// the frame arrived whole, so the stream is still usable
			that.logger.Error("failed to decode response", "type", request.Type, "error", err)
			return fmt.Errorf("%w: %w", ErrNoResponse, err)
		}

		that.invalidate()
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	return nil
}

// connect - dials if no session is open. Callers hold the mutex.
func (that *Connection) connect(ctx context.Context) error {
	if that.conn != nil {
		return nil
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", that.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", that.addr, err)
	}

	that.logger.Info("connected to server", "addr", that.addr)
	that.conn = conn

	return nil
}

// invalidate - drops the socket so the next round trip redials. Callers
// hold the mutex.
func (that *Connection) invalidate() {
	if that.conn == nil {
		return
	}

	_ = that.conn.Close()
	that.conn = nil
}
