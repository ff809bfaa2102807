// ratelimit — ограничение частоты запросов к публичным маршрутам
// аутентификации (sign-in, sign-up, google). Ключ — адрес клиента.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable — бэкенд лимитера (Redis) недоступен.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter решает, пропустить ли очередной запрос с ключом key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config — параметры окна: не более Limit запросов за Window.
// Limit <= 0 отключает ограничение.
type Config struct {
	Limit  int
	Window time.Duration
	Prefix string
}

func (c Config) disabled() bool { return c.Limit <= 0 }

func (c Config) window() time.Duration {
	if c.Window <= 0 {
		return time.Minute
	}

	return c.Window
}
