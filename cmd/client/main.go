package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/solihah-a/tictactoev4/internal/client"
	"github.com/solihah-a/tictactoev4/internal/config"
	"github.com/solihah-a/tictactoev4/internal/entity"
	"github.com/solihah-a/tictactoev4/internal/gameplay"
	"github.com/solihah-a/tictactoev4/internal/pairing"
	"github.com/solihah-a/tictactoev4/internal/protocol"
)

// terminal front-end over the client core: sign in, pick an opponent
// from the roster, play. One command per line.
func main() {
	conf := initConfig()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	app := &app{
		logger: logger,
		conf:   conf,
		conn:   client.New(logger, conf.Client.GetServerAddr(), conf.Client.ReadTimeout),
		lines:  make(chan string),
		events: make(chan gameEvent, 8),
	}
	defer app.conn.Close()

	go app.readLines()

	if err := app.run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

type gameEvent struct {
	kind    string // "invitation", "accepted", "declined", "move", "over"
	event   *entity.Event
	row     int
	col     int
	message string
}

type app struct {
	logger *slog.Logger
	conf   *config.Config
	conn   *client.Connection

	lines  chan string
	events chan gameEvent

	mu         sync.Mutex
	roster     []string
	invitation *entity.Event
}

func (that *app) readLines() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		that.lines <- strings.TrimSpace(scanner.Text())
	}
	close(that.lines)
}

func (that *app) run(ctx context.Context) error {
	username, err := that.signIn(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("signed in as %s\n", username)
	fmt.Println("commands: invite <user>, accept, decline, quit")

	poller := pairing.NewPoller(that.logger, that.conn, that, that.conf.Client.PollInterval)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go poller.Run(pollCtx)

	for {
		select {
		case line, ok := <-that.lines:
			if !ok {
				return nil
			}
			done, err := that.handleCommand(ctx, poller, line)
			if err != nil {
				fmt.Println(err)
			}
			if done {
				return nil
			}
		case event := <-that.events:
			switch event.kind {
			case "invitation":
				fmt.Printf("%s invites you to play. accept or decline?\n", event.event.Sender)
			case "declined":
				fmt.Printf("%s declined your invitation\n", event.event.Opponent)
			case "accepted":
				fmt.Printf("%s accepted! you are X\n", event.event.Opponent)
				that.playGame(ctx, 1)
				poller.Resume()
			}
		}
	}
}

func (that *app) signIn(ctx context.Context) (string, error) {
	for {
		fmt.Print("username: ")
		username, ok := <-that.lines
		if !ok {
			return "", fmt.Errorf("no input")
		}

		fmt.Print("password: ")
		password, ok := <-that.lines
		if !ok {
			return "", fmt.Errorf("no input")
		}

		payload, err := json.Marshal(&entity.User{Username: username, Password: password})
		if err != nil {
			return "", fmt.Errorf("failed to encode credentials: %w", err)
		}

		response, err := that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeLogin, string(payload)))
		if err != nil {
			return "", fmt.Errorf("failed to reach server: %w", err)
		}

		if response.IsSuccess() {
			return username, nil
		}

		fmt.Printf("login failed: %s. registering instead\n", response.Message)

		response, err = that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeRegister, string(payload)))
		if err != nil {
			return "", fmt.Errorf("failed to reach server: %w", err)
		}

		if !response.IsSuccess() {
			fmt.Printf("registration failed: %s\n", response.Message)
			continue
		}

		response, err = that.conn.SendRequest(ctx, protocol.NewRequest(protocol.TypeLogin, string(payload)))
		if err != nil {
			return "", fmt.Errorf("failed to reach server: %w", err)
		}

		if response.IsSuccess() {
			return username, nil
		}

		fmt.Printf("login failed: %s\n", response.Message)
	}
}

func (that *app) handleCommand(ctx context.Context, poller *pairing.Poller, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit":
		return true, nil

	case "invite":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: invite <user>")
		}
		if err := poller.SendInvitation(ctx, fields[1]); err != nil {
			return false, err
		}
		fmt.Printf("invitation sent to %s\n", fields[1])
		return false, nil

	case "accept":
		invitation := that.takeInvitation()
		if invitation == nil {
			return false, fmt.Errorf("no pending invitation")
		}
		if err := poller.AcceptInvitation(ctx, invitation); err != nil {
			return false, err
		}
		fmt.Println("you are O")
		that.playGame(ctx, 2)
		poller.Resume()
		return false, nil

	case "decline":
		invitation := that.takeInvitation()
		if invitation == nil {
			return false, fmt.Errorf("no pending invitation")
		}
		return false, poller.DeclineInvitation(ctx, invitation)

	default:
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
}

// playGame owns the terminal until the game is over or abandoned.
func (that *app) playGame(ctx context.Context, player int) {
	game := gameplay.NewTicTacToe(player)
	synchronizer := gameplay.NewSynchronizer(that.logger, that.conn, game, that, that.conf.Client.PollInterval)

	gameCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go synchronizer.Run(gameCtx)
	defer synchronizer.Stop(ctx)

	that.printBoard(game)
	fmt.Println("enter moves as: <row> <col> (0-2), or resign")

	for {
		select {
		case line, ok := <-that.lines:
			if !ok {
				return
			}
			if line == "resign" {
				return
			}

			row, col, err := parseMove(line)
			if err != nil {
				fmt.Println(err)
				continue
			}

			if err = synchronizer.PlayLocal(ctx, row, col); err != nil {
				fmt.Println(err)
				continue
			}

			that.printBoard(game)
			if game.IsGameOver() {
				fmt.Println(game.Result())
				return
			}

		case event := <-that.events:
			switch event.kind {
			case "move":
				that.printBoard(game)
				if game.IsGameOver() {
					fmt.Println(game.Result())
					return
				}
			case "over":
				fmt.Println(event.message)
				return
			}
		}
	}
}

func parseMove(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("usage: <row> <col>")
	}

	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("row must be a number")
	}

	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("col must be a number")
	}

	return row, col, nil
}

func (that *app) printBoard(game *gameplay.TicTacToe) {
	marks := map[int]string{entity.CellEmpty: ".", entity.CellPlayerOne: "X", entity.CellPlayerTwo: "O"}

	for row := 0; row < gameplay.Side; row++ {
		cells := make([]string, 0, gameplay.Side)
		for col := 0; col < gameplay.Side; col++ {
			cells = append(cells, marks[game.Cell(row, col)])
		}
		fmt.Println(strings.Join(cells, " "))
	}
	fmt.Println(game.Result())
}

func (that *app) takeInvitation() *entity.Event {
	that.mu.Lock()
	defer that.mu.Unlock()

	invitation := that.invitation
	that.invitation = nil
	return invitation
}

// pairing.Handler

func (that *app) RosterUpdated(users []*entity.User) {
	that.mu.Lock()
	defer that.mu.Unlock()

	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, user.Username)
	}

	if strings.Join(names, ",") == strings.Join(that.roster, ",") {
		return
	}

	that.roster = names
	if len(names) == 0 {
		fmt.Println("nobody else is available right now")
		return
	}
	fmt.Printf("available: %s\n", strings.Join(names, ", "))
}

func (that *app) InvitationReceived(event *entity.Event) {
	that.mu.Lock()
	that.invitation = event
	that.mu.Unlock()

	that.events <- gameEvent{kind: "invitation", event: event}
}

func (that *app) InvitationAccepted(event *entity.Event) {
	that.events <- gameEvent{kind: "accepted", event: event}
}

func (that *app) InvitationDeclined(event *entity.Event) {
	that.events <- gameEvent{kind: "declined", event: event}
}

// gameplay.Handler

func (that *app) OpponentMoved(row, col int) {
	that.events <- gameEvent{kind: "move", row: row, col: col}
}

func (that *app) GameTerminated(message string) {
	that.events <- gameEvent{kind: "over", message: message}
}
