package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vedit/apperr"
	"Vedit/model"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client)
}

func TestRedisStoreBeginAdmitsOnce(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	ok, err := s.Begin(ctx, "upload:p:vid", model.Job{Status: model.JobProcessing}, 60*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Begin(ctx, "upload:p:vid", model.Job{Status: model.JobProcessing}, 60*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(61 * time.Second)
	ok, err = s.Begin(ctx, "upload:p:vid", model.Job{Status: model.JobProcessing}, 60*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreSetGetExpire(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	want := model.Job{ID: "k", Status: model.JobComplete, OutputID: "export.mp4"}
	require.NoError(t, s.Set(ctx, "k", want, 5*time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, mr.Exists(redisKeyPrefix+"k"))

	mr.FastForward(5*time.Minute + time.Second)
	_, err = s.Get(ctx, "k")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRedisStoreDelete(t *testing.T) {
	_, s := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", model.Job{Status: model.JobProcessing}, time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err := s.Get(ctx, "k")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRedisStoreClaim(t *testing.T) {
	_, s := setupMiniRedis(t)
	ctx := context.Background()

	ok, err := s.Claim(ctx, "export:p", model.Job{Status: model.JobProcessing}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "export:p", model.Job{Status: model.JobProcessing}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "export:p", model.Job{Status: model.JobComplete}, time.Minute))
	ok, err = s.Claim(ctx, "export:p", model.Job{Status: model.JobProcessing}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	job, err := s.Get(ctx, "export:p")
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, job.Status)
}
