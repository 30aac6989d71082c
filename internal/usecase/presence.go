package usecase

import (
	"sort"
	"sync"
)

// Presence tracks which users currently hold a live connection and which of
// them are tied up in a game. It is the only matchmaking state that lives
// outside redis: it describes connections, not accounts, so it dies with
// the process on purpose.
type Presence struct {
	mu    sync.RWMutex
	users map[string]*presenceState
}

type presenceState struct {
	busy bool
}

func NewPresence() *Presence {
	return &Presence{
		users: make(map[string]*presenceState),
	}
}

// Login - marks username online; reports false when the name already has a
// live connection.
func (that *Presence) Login(username string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, online := that.users[username]; online {
		return false
	}

	that.users[username] = &presenceState{}

	return true
}

func (that *Presence) Logout(username string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.users, username)
}

func (that *Presence) SetBusy(username string, busy bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if state, online := that.users[username]; online {
		state.busy = busy
	}
}

func (that *Presence) IsOnline(username string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, online := that.users[username]

	return online
}

// IsAvailable - online and not in a game.
func (that *Presence) IsAvailable(username string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	state, online := that.users[username]

	return online && !state.busy
}

// Available - every available username except the given one, sorted so the
// roster is stable between polls.
func (that *Presence) Available(except string) []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	names := make([]string, 0, len(that.users))
	for username, state := range that.users {
		if username == except || state.busy {
			continue
		}
		names = append(names, username)
	}

	sort.Strings(names)

	return names
}
