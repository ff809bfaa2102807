package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Фиксированное окно: счётчик живёт Window с момента первого запроса.
var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Redis — лимитер с общим для всех экземпляров шлюза счётчиком.
type Redis struct {
	rdb *redis.Client
	cfg Config
}

// NewRedis подключается к Redis по URL (redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rl:".
func NewRedis(ctx context.Context, redisURL string, cfg Config) (*Redis, error) {
	const op = "ratelimit.redis.NewRedis"

	if cfg.Prefix == "" {
		cfg.Prefix = "auth:rl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Redis{rdb: rdb, cfg: cfg}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.redis.Allow"

	if r.cfg.disabled() {
		return true, nil
	}

	current, err := allowScript.Run(ctx, r.rdb, []string{r.cfg.Prefix + key}, r.cfg.window().Milliseconds()).Int64()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return current <= int64(r.cfg.Limit), nil
}

// Ping используется проверкой готовности.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
