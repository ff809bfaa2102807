package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL — через сколько простоя ключ удаляется из памяти.
const idleTTL = 5 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory — token bucket на ключ в памяти процесса.
// Подходит для одного экземпляра шлюза; для нескольких нужен Redis.
type Memory struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewMemory создаёт лимитер: Limit запросов подряд, затем
// восполнение по одному за Window/Limit.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	if m.cfg.disabled() {
		return true, nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		every := m.cfg.window() / time.Duration(m.cfg.Limit)
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), m.cfg.Limit)}
		m.buckets[key] = b
	}
	b.seen = now

	return b.lim.AllowN(now, 1), nil
}

// sweep удаляет простаивающие ключи не чаще раза в минуту.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < time.Minute {
		return
	}
	m.lastSweep = now

	for k, b := range m.buckets {
		if now.Sub(b.seen) > idleTTL {
			delete(m.buckets, k)
		}
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.buckets)
}
