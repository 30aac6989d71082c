package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/solihah-a/tictactoev4/internal/apperror"
	"github.com/solihah-a/tictactoev4/internal/entity"
)

type SessionRepository interface {
	CreateOrUpdate(ctx context.Context, session *entity.GameSession) error
	GetByID(ctx context.Context, id string) (*entity.GameSession, error)
	GetByPlayer(ctx context.Context, username string) (*entity.GameSession, error)
	Delete(ctx context.Context, session *entity.GameSession) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func (that *dbSession) CreateOrUpdate(ctx context.Context, session *entity.GameSession) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err = that.client.Set(ctx, "session:"+session.ID, sessionJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	for _, username := range []string{session.PlayerOne, session.PlayerTwo} {
		if err = that.client.Set(ctx, "session:player:"+username, session.ID, 0).Err(); err != nil {
			return fmt.Errorf("failed to index session player: %w", err)
		}
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.GameSession, error) {
	response, err := that.client.Get(ctx, "session:"+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNoActiveGame, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	var existingSession entity.GameSession
	if err = json.Unmarshal([]byte(response), &existingSession); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &existingSession, nil
}

func (that *dbSession) GetByPlayer(ctx context.Context, username string) (*entity.GameSession, error) {
	id, err := that.client.Get(ctx, "session:player:"+username).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNoActiveGame, username)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by player: %w", err)
	}

	return that.GetByID(ctx, id)
}

// releasePlayerScript drops a player pointer only while it still names
// the session being deleted; a newer game may have overwritten it.
var releasePlayerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (that *dbSession) Delete(ctx context.Context, session *entity.GameSession) error {
	if err := that.client.Del(ctx, "session:"+session.ID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	for _, username := range []string{session.PlayerOne, session.PlayerTwo} {
		key := "session:player:" + username
		if err := releasePlayerScript.Run(ctx, that.client, []string{key}, session.ID).Err(); err != nil {
			return fmt.Errorf("failed to release session player: %w", err)
		}
	}

	return nil
}
