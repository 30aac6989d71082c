package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

// EventRepository stores invitation events and the two per-user indexes the
// pairing poll reads: pending invitations addressed to a user, and terminal
// responses a sender has not acknowledged yet. Event ids are allocated from
// a monotonic redis counter. A sorted pair key guards the at-most-one
// pending invitation invariant per user pair, in either direction.
type EventRepository interface {
	CreatePending(ctx context.Context, sender, opponent string) (*entity.Event, error)
	GetByID(ctx context.Context, id int) (*entity.Event, error)
	MarkResolved(ctx context.Context, event *entity.Event) error
	Acknowledge(ctx context.Context, event *entity.Event) error

	NextInvitationFor(ctx context.Context, username string) (*entity.Event, error)
	NextResponseFor(ctx context.Context, username string) (*entity.Event, error)
}

type dbEvent struct {
	client *redis.Client
}

func NewEventRepository(client *redis.Client) EventRepository {
	return &dbEvent{
		client: client,
	}
}

func (that *dbEvent) CreatePending(ctx context.Context, sender, opponent string) (*entity.Event, error) {
	id, err := that.client.Incr(ctx, "event:next-id").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate event id: %w", err)
	}

	event := entity.NewEvent(int(id), sender, opponent)

	reserved, err := that.client.SetNX(ctx, pairKey(sender, opponent), event.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve invitation pair: %w", err)
	}

	if !reserved {
		return nil, fmt.Errorf("%w: %s and %s", apperror.ErrInvitePending, sender, opponent)
	}

	if err = that.save(ctx, event); err != nil {
		return nil, err
	}

	if err = that.client.SAdd(ctx, "invites:to:"+opponent, event.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index invitation: %w", err)
	}

	return event, nil
}

func (that *dbEvent) GetByID(ctx context.Context, id int) (*entity.Event, error) {
	response, err := that.client.Get(ctx, eventKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %d", apperror.ErrEventNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	var existingEvent entity.Event
	if err = json.Unmarshal([]byte(response), &existingEvent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &existingEvent, nil
}

// MarkResolved - persists a terminal event and moves it from the
// recipient's pending index to the sender's unacknowledged index.
func (that *dbEvent) MarkResolved(ctx context.Context, event *entity.Event) error {
	if err := that.save(ctx, event); err != nil {
		return err
	}

	if err := that.client.SRem(ctx, "invites:to:"+event.Opponent, event.ID).Err(); err != nil {
		return fmt.Errorf("failed to drop invitation index: %w", err)
	}

	if err := that.client.Del(ctx, pairKey(event.Sender, event.Opponent)).Err(); err != nil {
		return fmt.Errorf("failed to release invitation pair: %w", err)
	}

	if err := that.client.SAdd(ctx, "responses:for:"+event.Sender, event.ID).Err(); err != nil {
		return fmt.Errorf("failed to index invitation response: %w", err)
	}

	return nil
}

// Acknowledge - garbage-collects a terminal event the sender has observed.
func (that *dbEvent) Acknowledge(ctx context.Context, event *entity.Event) error {
	if err := that.client.SRem(ctx, "responses:for:"+event.Sender, event.ID).Err(); err != nil {
		return fmt.Errorf("failed to drop response index: %w", err)
	}

	if err := that.client.Del(ctx, eventKey(event.ID)).Err(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

func (that *dbEvent) NextInvitationFor(ctx context.Context, username string) (*entity.Event, error) {
	return that.lowestFrom(ctx, "invites:to:"+username)
}

func (that *dbEvent) NextResponseFor(ctx context.Context, username string) (*entity.Event, error) {
	return that.lowestFrom(ctx, "responses:for:"+username)
}

// lowestFrom - loads the indexed event with the smallest id, so repeated
// polls surface events in creation order. Returns nil when the index is
// empty or the winning entry was already collected.
func (that *dbEvent) lowestFrom(ctx context.Context, indexKey string) (*entity.Event, error) {
	members, err := that.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event index: %w", err)
	}

	lowest := 0
	for _, member := range members {
		id, convErr := strconv.Atoi(member)
		if convErr != nil {
			continue
		}
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}

	if lowest == 0 {
		return nil, nil
	}

	event, err := that.GetByID(ctx, lowest)
	if errors.Is(err, apperror.ErrEventNotFound) {
		return nil, nil
	}

	return event, err
}

func (that *dbEvent) save(ctx context.Context, event *entity.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = that.client.Set(ctx, eventKey(event.ID), eventJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set event: %w", err)
	}

	return nil
}

func eventKey(id int) string {
	return "event:" + strconv.Itoa(id)
}

func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return "pending-pair:" + a + ":" + b
}
