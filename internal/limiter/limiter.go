// Package limiter caps failed verification attempts per user in redis.
package limiter

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"identity/internal/domain"
)

const (
	defaultMaxAttempts = 5
	defaultCooldown    = time.Minute
)

type RedisLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, maxAttempts int, cooldown time.Duration) *RedisLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &RedisLimiter{redis: client, maxAttempts: int64(maxAttempts), cooldown: cooldown}
}

func (l *RedisLimiter) key(userID domain.UserID) string {
	return "mfa:att:" + strconv.FormatUint(uint64(userID), 10)
}

// releaseScript gives back a reservation without recreating an expired window.
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// Reserve counts one attempt and fails with ErrTooManyAttempts once the user
// is over the cap. The count and its window start are set in one MULTI, so
// concurrent callers cannot all slip under the cap.
func (l *RedisLimiter) Reserve(ctx context.Context, userID domain.UserID) error {
	key := l.key(userID)
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, l.cooldown)
		return nil
	})
	if err != nil {
		return domain.Transient(err)
	}
	if incr.Val() > l.maxAttempts {
		return domain.ErrTooManyAttempts
	}
	return nil
}

// Release hands back an attempt that was not a wrong code.
func (l *RedisLimiter) Release(ctx context.Context, userID domain.UserID) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key(userID)}).Err(); err != nil {
		return domain.Transient(err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, userID domain.UserID) error {
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return domain.Transient(err)
	}
	return nil
}

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
