package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/b2bflow/front-forms/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	store, err := NewRedisStore(client, time.Hour)
	require.NoError(t, err)
	return mr, store
}

func TestNewRedisStore_RequiresClient(t *testing.T) {
	_, err := NewRedisStore(nil, time.Hour)
	require.Error(t, err)
}

func TestRedisStore_CreateAndLoad(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()
	conv := sampleConversation()

	require.NoError(t, store.Create(ctx, conv))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, conv.Transcript, got.Transcript)
	require.Equal(t, conv.Answers, got.Answers)
	require.Equal(t, conv.Step, got.Step)
	require.Equal(t, time.Hour, mr.TTL(stateKey("abc")))
	require.Equal(t, time.Hour, mr.TTL(transcriptKey("abc")))

	err = store.Create(ctx, conv)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestRedisStore_SaveAppendsMessages(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()
	conv := sampleConversation()
	require.NoError(t, store.Create(ctx, conv))

	next := conv
	next.Version = 1
	next.Step = domain.StepEmail
	added := domain.Message{Key: "0002-system", Seq: 2, Text: "Qual seu e-mail?", Speaker: domain.SpeakerSystem, CreatedAt: fixedNow}
	next.Transcript = append(append([]domain.Message(nil), conv.Transcript...), added)
	require.NoError(t, store.Save(ctx, next, []domain.Message{added}))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.Equal(t, domain.StepEmail, got.Step)
	require.Equal(t, next.Transcript, got.Transcript)
}

func TestRedisStore_SaveRejectsStaleVersion(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()
	conv := sampleConversation()
	require.NoError(t, store.Create(ctx, conv))

	conv.Version = 2
	err := store.Save(ctx, conv, nil)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, 0, got.Version)
	require.Len(t, got.Transcript, 2)
}

func TestRedisStore_NotFound(t *testing.T) {
	_, store := setupTestRedis(t)

	_, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrConversationNotFound)

	conv := sampleConversation()
	conv.ID = "missing"
	conv.Version = 1
	err = store.Save(context.Background(), conv, nil)
	require.ErrorIs(t, err, domain.ErrConversationNotFound)
}
