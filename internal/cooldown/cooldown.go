// Package cooldown throttles repeated actions per key using Redis.
package cooldown

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Returns 0 when the key was claimed, otherwise the remaining TTL in ms.
var claimScript = redis.NewScript(`
if redis.call("SET", KEYS[1], "1", "NX", "PX", ARGV[1]) then
  return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  return 0
end
return ttl
`)

type Limiter struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
}

func New(rdb *redis.Client, window time.Duration, prefix string) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cooldown"
	}
	return &Limiter{rdb: rdb, window: window, prefix: prefix}
}

// Acquire claims key for one window. When the key is still cooling down it
// returns false and the time left.
func (l *Limiter) Acquire(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := claimScript.Run(ctx, l.rdb, []string{l.prefix + ":" + strings.ToLower(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown %s: %w", key, err)
	}
	if res == 0 {
		return true, 0, nil
	}
	return false, time.Duration(res) * time.Millisecond, nil
}

// Release clears key so a failed action can be retried at once.
func (l *Limiter) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.prefix+":"+strings.ToLower(key)).Err()
}
