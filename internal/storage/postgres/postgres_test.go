package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты поднимают PostgreSQL через testcontainers-go
// и применяют миграции из ./migrations.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func repoRootFromThisFile() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres поднимает временный PostgreSQL, применяет обе миграции
// и возвращает хранилище. Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// Порт может открыться раньше, чем сервер начнёт принимать запросы.
	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return false
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return false
		}
		pool = p
		return true
	}, 30*time.Second, 200*time.Millisecond)
	defer pool.Close()

	for _, m := range []string{"1_init_accounts.up.sql", "2_init_listings.up.sql"} {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, "apply %s", m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.NoError(t, classify(nil))
	require.ErrorIs(t, classify(pgx.ErrNoRows), storage.ErrNotFound)
	require.ErrorIs(t, classify(&pgconn.PgError{Code: pgerrcode.UniqueViolation}), storage.ErrAlreadyExists)
	require.ErrorIs(t, classify(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}), storage.ErrUnavailable)
	require.ErrorIs(t, classify(fmt.Errorf("wrap: %w", context.DeadlineExceeded)), storage.ErrUnavailable)

	canceled := classify(context.Canceled)
	require.ErrorIs(t, canceled, context.Canceled)
	require.NotErrorIs(t, canceled, storage.ErrUnavailable)

	other := errors.New("syntax error")
	require.Equal(t, other, classify(other))
}

func TestIntegration_Ping(t *testing.T) {
	st := startPostgres(t)
	require.NoError(t, st.Ping(context.Background()))
}
