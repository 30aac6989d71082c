package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solihah-a/tictactoev4/internal/protocol"
	"github.com/solihah-a/tictactoev4/transport"
)

// Server bridges the socket protocol to browser clients: the same
// Request/Response JSON contract, carried as one text message per
// request and one per response instead of length-prefixed frames.
type Server struct {
	logger     *slog.Logger
	dispatcher *transport.Dispatcher
	upgrader   websocket.Upgrader
}

func New(logger *slog.Logger, dispatcher *transport.Dispatcher) *Server {
	return &Server{
		logger:     logger.With("component", "websocket"),
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Start - serves the /ws endpoint on port until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(writer http.ResponseWriter, req *http.Request) {
		that.serveConnection(ctx, writer, req)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	that.logger.Info("websocket bridge listening", "port", port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start websocket bridge: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("remote", req.RemoteAddr)

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	log.Info("client connected")

	session := &transport.Session{}

	defer func() {
		_ = conn.Close()
		that.dispatcher.Disconnect(ctx, session)
		log.Info("client disconnected", "username", session.Username)
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("connection read failed", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var request protocol.Request
		if err = json.Unmarshal(payload, &request); err != nil {
			log.Error("dropping malformed request", "error", err)
			if writeErr := conn.WriteJSON(protocol.Failure("malformed request")); writeErr != nil {
				return
			}
			continue
		}

		response := that.dispatcher.Dispatch(ctx, session, &request)

		if err = conn.WriteJSON(response); err != nil {
			log.Error("failed to write response", "error", err)
			return
		}
	}
}
