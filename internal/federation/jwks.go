package federation

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultKeysTTL       = 5 * time.Minute
	defaultKeysMaxStale  = 15 * time.Minute
	defaultFetchTimeout  = 5 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryMax      = 2 * time.Second
)

// Промахи по kid вызывают не больше одного запроса за интервал.
const defaultMinRefreshInterval = 10 * time.Second

var (
	// ErrKeysUnavailable — ключи провайдера не удалось получить.
	ErrKeysUnavailable = errors.New("identity provider keys unavailable")
	// ErrUnknownKey — в наборе провайдера нет ключа с таким kid.
	ErrUnknownKey = errors.New("unknown signing key")
)

type keyState int

const (
	keyMissing keyState = iota
	keyFresh
	keyStale
)

// keySet — кэш JWKS провайдера: TTL, окно устаревания, единственный
// одновременный запрос за ключами и повтор с экспоненциальной задержкой.
type keySet struct {
	url          string
	client       *http.Client
	ttl          time.Duration
	maxStale     time.Duration
	fetchTimeout time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	minInterval  time.Duration
	now          func() time.Time

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	expiresAt  time.Time
	staleUntil time.Time
	fetchedAt  time.Time

	group singleflight.Group
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newKeySet(url string, client *http.Client) *keySet {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	return &keySet{
		url:          url,
		client:       client,
		ttl:          defaultKeysTTL,
		maxStale:     defaultKeysMaxStale,
		fetchTimeout: defaultFetchTimeout,
		retryBase:    defaultRetryBase,
		retryMax:     defaultRetryMax,
		minInterval:  defaultMinRefreshInterval,
		now:          time.Now,
		keys:         map[string]*rsa.PublicKey{},
	}
}

// Key возвращает публичный ключ по kid. Устаревший ключ отдаётся сразу,
// а обновление идёт в фоне; промах по kid запускает синхронное обновление.
func (s *keySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	const op = "federation.jwks.Key"

	if kid == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownKey)
	}

	switch key, state := s.lookup(kid, s.now()); state {
	case keyFresh:
		return key, nil
	case keyStale:
		s.refreshAsync(ctx)
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if key, _ := s.lookup(kid, s.now()); key != nil {
		return key, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrUnknownKey)
}

func (s *keySet) lookup(kid string, now time.Time) (*rsa.PublicKey, keyState) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[kid]
	switch {
	case !ok:
		return nil, keyMissing
	case now.Before(s.expiresAt):
		return key, keyFresh
	case now.Before(s.staleUntil):
		return key, keyStale
	default:
		return nil, keyMissing
	}
}

func (s *keySet) refreshAsync(ctx context.Context) {
	lg := log.From(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(log.Into(context.Background(), lg), s.fetchTimeout)
		defer cancel()

		_ = s.refresh(ctx)
	}()
}

// refresh объединяет одновременные обновления в один запрос.
func (s *keySet) refresh(ctx context.Context) error {
	ch := s.group.DoChan("jwks", func() (any, error) {
		if s.recentlyFetched() {
			return nil, nil
		}

		// Запрос не должен обрываться вместе с контекстом первого вызывающего.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		return nil, s.doRefresh(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *keySet) recentlyFetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.minInterval
}

func (s *keySet) doRefresh(ctx context.Context) error {
	const op = "federation.jwks.doRefresh"

	lg := log.From(ctx)

	keys, err := s.fetchWithRetry(ctx)
	if err != nil {
		lg.Warn("jwks_refresh_failed",
			slog.String("op", op),
			slog.String("url", s.url),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}

	now := s.now()

	s.mu.Lock()
	s.keys = keys
	s.expiresAt = now.Add(s.ttl)
	s.staleUntil = s.expiresAt.Add(s.maxStale)
	s.fetchedAt = now
	s.mu.Unlock()

	lg.Debug("jwks_refreshed",
		slog.String("op", op),
		slog.Int("keys", len(keys)),
	)

	return nil
}

func (s *keySet) fetchWithRetry(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	delay := s.retryBase

	var lastErr error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}

			delay = min(delay*2, s.retryMax)
		}

		keys, err := s.fetchOnce(ctx)
		if err == nil {
			return keys, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func (s *keySet) fetchOnce(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}

		pub, err := k.rsaPublicKey()
		if err != nil {
			continue
		}

		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}

	return keys, nil
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	if k.N == "" || k.E == "" {
		return nil, errors.New("missing rsa params")
	}

	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}

	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}

	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() <= 1 || exp.Int64() > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
