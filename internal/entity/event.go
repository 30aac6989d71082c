package entity

import (
	"fmt"

	"github.com/solihah-a/tictactoev4/internal/apperror"
)

const (
	EventPending  = "PENDING"
	EventAccepted = "ACCEPTED"
	EventDeclined = "DECLINED"
)

// Event is a game invitation from Sender to Opponent. It transitions
// exactly once from PENDING to a terminal status.
type Event struct {
	ID       int    `json:"eventId"`
	Sender   string `json:"sender"`
	Opponent string `json:"opponent"`
	Status   string `json:"status"`
}

func NewEvent(id int, sender, opponent string) *Event {
	return &Event{
		ID:       id,
		Sender:   sender,
		Opponent: opponent,
		Status:   EventPending,
	}
}

func (that *Event) IsPending() bool {
	return that.Status == EventPending
}

func (that *Event) IsAccepted() bool {
	return that.Status == EventAccepted
}

// Resolve - moves a pending invitation to its terminal status.
func (that *Event) Resolve(status string) error {
	if !that.IsPending() {
		return fmt.Errorf("%w: event %d is %s", apperror.ErrEventResolved, that.ID, that.Status)
	}

	if status != EventAccepted && status != EventDeclined {
		return fmt.Errorf("unknown terminal status: %s", status)
	}

	that.Status = status

	return nil
}
