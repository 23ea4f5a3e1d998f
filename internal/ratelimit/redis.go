package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "speakgate:ratelimit:"

// incrWindow counts a hit and starts the window on the first one.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// Redis is a fixed-window counter shared by every replica using the same server.
type Redis struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedis(url string, max int, win time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return newRedis(redis.NewClient(opt), max, win), nil
}

func newRedis(client *redis.Client, max int, win time.Duration) *Redis {
	if max <= 0 {
		max = DefaultMax
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &Redis{client: client, max: max, window: win}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := incrWindow.Run(ctx, r.client, []string{keyPrefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 2 {
		return Decision{}, redis.Nil
	}

	count := int(vals[0])
	if count > r.max {
		retry := time.Duration(vals[1]) * time.Millisecond
		if retry <= 0 {
			retry = r.window
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: r.max - count}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
