package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/solihah-a/tictactoev4/internal/config"
	"github.com/solihah-a/tictactoev4/internal/repository"
	"github.com/solihah-a/tictactoev4/internal/repository/storage"
	"github.com/solihah-a/tictactoev4/internal/usecase"
	"github.com/solihah-a/tictactoev4/transport"
	"github.com/solihah-a/tictactoev4/transport/socket"
	"github.com/solihah-a/tictactoev4/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the server: redis storage, matchmaking and gameplay use
// cases, the TCP socket front and the websocket bridge. Blocks until a
// signal arrives or a server fails.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	userRepo := repository.NewUserRepository(redisStorage)
	eventRepo := repository.NewEventRepository(redisStorage)
	sessionRepo := repository.NewSessionRepository(redisStorage)

	presence := usecase.NewPresence()
	pairingUseCase := usecase.NewPairingUseCase(logger, presence, userRepo, eventRepo, sessionRepo)
	gameplayUseCase := usecase.NewGameplayUseCase(logger, presence, sessionRepo)

	dispatcher := transport.NewDispatcher(logger, pairingUseCase, gameplayUseCase)

	// run socket server
	socketErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting socket server", "port", conf.SocketPort)
		socketServer := socket.New(logger, dispatcher)
		if socketErr := socketServer.Start(ctx, conf.SocketPort); socketErr != nil {
			log.Error("Socket server error", "error", socketErr)
			socketErrCh <- socketErr
		}
	}()

	// run websocket bridge
	bridgeErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket bridge", "port", conf.BridgePort)
		bridgeServer := websocket.New(logger, dispatcher)
		if bridgeErr := bridgeServer.Start(ctx, conf.BridgePort); bridgeErr != nil {
			log.Error("WebSocket bridge error", "error", bridgeErr)
			bridgeErrCh <- bridgeErr
		}
	}()

	select {
	case err = <-socketErrCh:
		return fmt.Errorf("socket server error: %w", err)
	case err = <-bridgeErrCh:
		return fmt.Errorf("websocket bridge error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
