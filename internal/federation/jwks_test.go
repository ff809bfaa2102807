package federation

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwksURL = "https://jwks.test/keys"

func fastKeySet(client *http.Client, now *time.Time) *keySet {
	ks := newKeySet(jwksURL, client)
	ks.retryBase = time.Millisecond
	ks.retryMax = 2 * time.Millisecond
	ks.now = func() time.Time { return *now }
	return ks
}

func TestKeySet_KidMissRefreshes(t *testing.T) {
	t.Parallel()

	priv := newRSAKey(t)
	jwks1 := buildJWKS(t, map[string]*rsa.PublicKey{"kid-1": &priv.PublicKey})
	jwks2 := buildJWKS(t, map[string]*rsa.PublicKey{"kid-2": &priv.PublicKey})

	var calls int32
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return jsonResponse(http.StatusOK, jwks1), nil
		}
		return jsonResponse(http.StatusOK, jwks2), nil
	})}

	now := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	ks := fastKeySet(client, &now)

	_, err := ks.Key(context.Background(), "kid-1")
	require.NoError(t, err)

	// сразу после загрузки промах по kid не порождает новый запрос.
	_, err = ks.Key(context.Background(), "kid-2")
	require.ErrorIs(t, err, ErrUnknownKey)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	now = now.Add(time.Minute)
	_, err = ks.Key(context.Background(), "kid-2")
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestKeySet_StaleKeysUsedUntilMaxStale(t *testing.T) {
	t.Parallel()

	priv := newRSAKey(t)
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("fetch failed")
	})}

	now := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	ks := newKeySet(jwksURL, client)
	ks.retryBase = time.Millisecond
	ks.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	ks.keys = map[string]*rsa.PublicKey{"kid-1": &priv.PublicKey}
	ks.expiresAt = now.Add(-time.Minute)
	ks.staleUntil = now.Add(10 * time.Minute)

	key, err := ks.Key(context.Background(), "kid-1")
	require.NoError(t, err)
	require.Equal(t, &priv.PublicKey, key)

	mu.Lock()
	now = now.Add(20 * time.Minute)
	mu.Unlock()

	_, err = ks.Key(context.Background(), "kid-1")
	require.ErrorIs(t, err, ErrKeysUnavailable)
}

func TestKeySet_RefreshSingleflight(t *testing.T) {
	t.Parallel()

	priv := newRSAKey(t)
	jwks := buildJWKS(t, map[string]*rsa.PublicKey{"kid-1": &priv.PublicKey})

	var calls int32
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return jsonResponse(http.StatusOK, jwks), nil
	})}

	now := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	ks := fastKeySet(client, &now)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ks.Key(ctx, "kid-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestKeySet_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	priv := newRSAKey(t)
	jwks := buildJWKS(t, map[string]*rsa.PublicKey{"kid-1": &priv.PublicKey})

	var calls int32
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
		}
		return jsonResponse(http.StatusOK, jwks), nil
	})}

	now := time.Now()
	ks := fastKeySet(client, &now)

	_, err := ks.Key(context.Background(), "kid-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestKeySet_SkipsUnusableKeys(t *testing.T) {
	t.Parallel()

	body := `{"keys":[{"kty":"EC","kid":"ec-1"},{"kty":"RSA","kid":"","n":"AQAB","e":"AQAB"},{"kty":"RSA","kid":"enc","use":"enc","n":"AQAB","e":"AQAB"}]}`
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	})}

	now := time.Now()
	ks := fastKeySet(client, &now)

	_, err := ks.Key(context.Background(), "ec-1")
	require.ErrorIs(t, err, ErrKeysUnavailable)
}

func TestKeySet_EmptyKid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ks := fastKeySet(http.DefaultClient, &now)

	_, err := ks.Key(context.Background(), "")
	require.ErrorIs(t, err, ErrUnknownKey)
}
