package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/solihah-a/tictactoev4/internal/protocol"
	"github.com/solihah-a/tictactoev4/transport"
)

// Server speaks the length-prefixed JSON protocol over persistent TCP
// connections: one goroutine per client, one framed request answered by
// exactly one framed response.
type Server struct {
	logger     *slog.Logger
	dispatcher *transport.Dispatcher
}

func New(logger *slog.Logger, dispatcher *transport.Dispatcher) *Server {
	return &Server{
		logger:     logger.With("component", "socket"),
		dispatcher: dispatcher,
	}
}

// Start - listens on port until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	that.logger.Info("socket server listening", "port", port)

	return that.Serve(ctx, listener)
}

// Serve - accepts connections from an already-open listener.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConnection(ctx, conn)
	}
}

func (that *Server) handleConnection(ctx context.Context, conn net.Conn) {
	log := that.logger.With("remote", conn.RemoteAddr().String())
	log.Info("client connected")

	session := &transport.Session{}

	defer func() {
		_ = conn.Close()
		that.dispatcher.Disconnect(ctx, session)
		log.Info("client disconnected", "username", session.Username)
	}()

	for {
		var request protocol.Request
		if err := protocol.DecodeFrame(conn, &request); err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				log.Error("dropping malformed request", "error", err)
				if writeErr := protocol.WriteFrame(conn, protocol.Failure("malformed request")); writeErr != nil {
					return
				}
				continue
			}

			if !errors.Is(err, io.EOF) {
				log.Debug("connection read failed", "error", err)
			}
			return
		}

		response := that.dispatcher.Dispatch(ctx, session, &request)

		if err := protocol.WriteFrame(conn, response); err != nil {
			log.Error("failed to write response", "error", err)
			return
		}
	}
}
