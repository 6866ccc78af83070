package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/b2bflow/front-forms/internal/domain"
)

const redisKeyPrefix = "conv:"

// RedisStore keeps conversations in Redis: the state as a JSON string and the
// transcript as a list of JSON messages. Used by the dev server.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if ttl <= 0 {
		ttl = ttlDuration
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func stateKey(id string) string {
	return redisKeyPrefix + id + ":state"
}

func transcriptKey(id string) string {
	return redisKeyPrefix + id + ":msgs"
}

func (s *RedisStore) Create(ctx context.Context, conv domain.Conversation) error {
	state, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("repository: Create encode state: %w", err)
	}
	msgs, err := encodeMessages(conv.Transcript)
	if err != nil {
		return fmt.Errorf("repository: Create: %w", err)
	}
	key := stateKey(conv.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.write(ctx, p, conv.ID, state, msgs)
			return nil
		})
		return err
	}, key)
	return s.wrap("Create", err)
}

func (s *RedisStore) Save(ctx context.Context, conv domain.Conversation, appended []domain.Message) error {
	state, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("repository: Save encode state: %w", err)
	}
	msgs, err := encodeMessages(appended)
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	key := stateKey(conv.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		var current struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(stored, &current); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		if current.Version != conv.Version-1 {
			return domain.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.write(ctx, p, conv.ID, state, msgs)
			return nil
		})
		return err
	}, key)
	return s.wrap("Save", err)
}

func (s *RedisStore) Load(ctx context.Context, id string) (domain.Conversation, error) {
	stored, err := s.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load: %w", err)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(stored, &conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load decode state: %w", err)
	}

	raw, err := s.client.LRange(ctx, transcriptKey(id), 0, -1).Result()
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load transcript: %w", err)
	}
	conv.Transcript = make([]domain.Message, 0, len(raw))
	for _, r := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return domain.Conversation{}, fmt.Errorf("repository: Load decode message: %w", err)
		}
		conv.Transcript = append(conv.Transcript, m)
	}
	return conv, nil
}

func (s *RedisStore) write(ctx context.Context, p redis.Pipeliner, id string, state []byte, msgs []any) {
	p.Set(ctx, stateKey(id), state, s.ttl)
	if len(msgs) > 0 {
		p.RPush(ctx, transcriptKey(id), msgs...)
	}
	p.Expire(ctx, transcriptKey(id), s.ttl)
}

// wrap maps a lost WATCH race to ErrVersionConflict.
func (s *RedisStore) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("repository: %s: %w", op, domain.ErrVersionConflict)
	default:
		return fmt.Errorf("repository: %s: %w", op, err)
	}
}

func encodeMessages(msgs []domain.Message) ([]any, error) {
	out := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode message %d: %w", m.Seq, err)
		}
		out = append(out, string(b))
	}
	return out, nil
}
