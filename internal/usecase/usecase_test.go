package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

// In-memory repositories mirroring the redis-backed ones, so the engine
// rules can be tested without a container.

type memUsers struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]entity.User)}
}

func (that *memUsers) Create(_ context.Context, user *entity.User) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, exists := that.users[user.Username]; exists {
		return fmt.Errorf("%w: %s", apperror.ErrUserExists, user.Username)
	}
	that.users[user.Username] = *user
	return nil
}

func (that *memUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	user, exists := that.users[username]
	if !exists {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUserNotFound, username)
	}
	return &user, nil
}

type memEvents struct {
	mu     sync.Mutex
	nextID int
	events map[int]*entity.Event
	pairs  map[string]bool
	forTo  map[string][]int // pending, per recipient
	forBy  map[string][]int // unacknowledged, per sender
}

func newMemEvents() *memEvents {
	return &memEvents{
		events: make(map[int]*entity.Event),
		pairs:  make(map[string]bool),
		forTo:  make(map[string][]int),
		forBy:  make(map[string][]int),
	}
}

func memPairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (that *memEvents) CreatePending(_ context.Context, sender, opponent string) (*entity.Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	key := memPairKey(sender, opponent)
	if that.pairs[key] {
		return nil, apperror.ErrInvitePending
	}

	that.nextID++
	event := entity.NewEvent(that.nextID, sender, opponent)
	that.events[event.ID] = event
	that.pairs[key] = true
	that.forTo[opponent] = append(that.forTo[opponent], event.ID)

	return event, nil
}

func (that *memEvents) GetByID(_ context.Context, id int) (*entity.Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	event, exists := that.events[id]
	if !exists {
		return nil, fmt.Errorf("%w: %d", apperror.ErrEventNotFound, id)
	}
	clone := *event
	return &clone, nil
}

func (that *memEvents) MarkResolved(_ context.Context, event *entity.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events[event.ID] = event
	delete(that.pairs, memPairKey(event.Sender, event.Opponent))
	that.forTo[event.Opponent] = removeID(that.forTo[event.Opponent], event.ID)
	that.forBy[event.Sender] = append(that.forBy[event.Sender], event.ID)

	return nil
}

func (that *memEvents) Acknowledge(_ context.Context, event *entity.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.events, event.ID)
	that.forBy[event.Sender] = removeID(that.forBy[event.Sender], event.ID)

	return nil
}

func (that *memEvents) NextInvitationFor(_ context.Context, username string) (*entity.Event, error) {
	return that.lowest(that.forTo, username), nil
}

func (that *memEvents) NextResponseFor(_ context.Context, username string) (*entity.Event, error) {
	return that.lowest(that.forBy, username), nil
}

func (that *memEvents) lowest(index map[string][]int, username string) *entity.Event {
	that.mu.Lock()
	defer that.mu.Unlock()

	best := 0
	for _, id := range index[username] {
		if best == 0 || id < best {
			best = id
		}
	}
	if best == 0 {
		return nil
	}
	clone := *that.events[best]
	return &clone
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*entity.GameSession
	byPlayer map[string]string
}

func newMemSessions() *memSessions {
	return &memSessions{
		sessions: make(map[string]*entity.GameSession),
		byPlayer: make(map[string]string),
	}
}

func (that *memSessions) CreateOrUpdate(_ context.Context, session *entity.GameSession) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	clone := *session
	that.sessions[session.ID] = &clone
	that.byPlayer[session.PlayerOne] = session.ID
	that.byPlayer[session.PlayerTwo] = session.ID

	return nil
}

func (that *memSessions) GetByID(_ context.Context, id string) (*entity.GameSession, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, exists := that.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNoActiveGame, id)
	}
	clone := *session
	return &clone, nil
}

func (that *memSessions) GetByPlayer(_ context.Context, username string) (*entity.GameSession, error) {
	that.mu.Lock()
	id, exists := that.byPlayer[username]
	that.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNoActiveGame, username)
	}
	return that.GetByID(context.Background(), id)
}

func (that *memSessions) Delete(_ context.Context, session *entity.GameSession) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, session.ID)
	for _, username := range []string{session.PlayerOne, session.PlayerTwo} {
		// a newer game may have repointed the player since
		if that.byPlayer[username] == session.ID {
			delete(that.byPlayer, username)
		}
	}

	return nil
}

type fixtures struct {
	presence *Presence
	users    *memUsers
	events   *memEvents
	sessions *memSessions
	pairing  *PairingUseCase
	gameplay *GameplayUseCase
}

func newFixtures() *fixtures {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	presence := NewPresence()
	users := newMemUsers()
	events := newMemEvents()
	sessions := newMemSessions()

	return &fixtures{
		presence: presence,
		users:    users,
		events:   events,
		sessions: sessions,
		pairing:  NewPairingUseCase(logger, presence, users, events, sessions),
		gameplay: NewGameplayUseCase(logger, presence, sessions),
	}
}

func (that *fixtures) loginAll(ctx context.Context, usernames ...string) error {
	for _, username := range usernames {
		user := &entity.User{Username: username, Password: "pw-" + username}
		if err := that.pairing.Register(ctx, user); err != nil {
			return err
		}
		if err := that.pairing.Login(ctx, user); err != nil {
			return err
		}
	}
	return nil
}
