package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"Vedit/apperr"
	"Vedit/model"
)

const redisKeyPrefix = "vedit:job:"

// claimScript sets KEYS[1] unless it holds a job that is still running.
var claimScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local status = cjson.decode(cur)['status']
	if status ~= 'complete' and status ~= 'error' then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RedisStore shares job state between processes. Expiry is delegated to
// Redis key TTLs.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Begin(ctx context.Context, key string, job model.Job, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, err, "encode job")
	}
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+key, data, ttl).Result()
	if err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, err, "admit job")
	}
	return ok, nil
}

func (s *RedisStore) Claim(ctx context.Context, key string, job model.Job, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, err, "encode job")
	}
	n, err := claimScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, data, ttl.Milliseconds()).Int()
	if err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, err, "claim job")
	}
	return n == 1, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, job model.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "encode job")
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "store job")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (model.Job, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Job{}, apperr.NotFound("job %s not found", key)
	}
	if err != nil {
		return model.Job{}, apperr.Wrap(apperr.CodeInternal, err, "load job")
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return model.Job{}, apperr.Wrap(apperr.CodeInternal, err, "decode job")
	}
	return job, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "delete job")
	}
	return nil
}
