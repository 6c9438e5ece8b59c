package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrementWindowScript counts a hit and reports the window's remaining
// milliseconds. A key without expiry (first hit, or one that lost its TTL)
// gets a fresh window so it can never block forever.
var incrementWindowScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateRepo keeps fixed-window request counters.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// IncrementWindow bumps key and returns the new count with the time left in
// the window.
func (r *RateRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	if key == "" || window < time.Millisecond {
		return 0, 0, fmt.Errorf("invalid rate window payload")
	}

	values, err := incrementWindowScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("increment rate window %s: %w", key, err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("increment rate window %s: unexpected reply %v", key, values)
	}

	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}
