package display

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"metyme/backend/internal/domain"
)

const (
	stateKey     = "metyme:display:receipt"
	eventChannel = "metyme:display:events"
)

// RedisStore persists the display state in redis and publishes every change
// on a pub/sub channel so display clients can react without polling.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context) (domain.DisplayState, bool, error) {
	val, err := s.client.Get(ctx, stateKey).Result()
	if err == redis.Nil {
		return domain.DisplayState{}, false, nil
	}
	if err != nil {
		return domain.DisplayState{}, false, err
	}

	var state domain.DisplayState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return domain.DisplayState{}, false, err
	}
	return state, true, nil
}

func (s *RedisStore) Set(ctx context.Context, state domain.DisplayState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, stateKey, payload, 0).Err(); err != nil {
		return err
	}
	return s.client.Publish(ctx, eventChannel, payload).Err()
}

// Subscribe delivers display state changes until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan domain.DisplayState, error) {
	sub := s.client.Subscribe(ctx, eventChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan domain.DisplayState)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var state domain.DisplayState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					continue
				}
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
