//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/repotest"
)

// startPostgres runs a throwaway PostgreSQL container and returns a migrated DB
func startPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "fundfolio",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=fundfolio sslmode=disable", host, port.Port())
	db, err := Connect(ctx, dsn, 10, 500*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	// Migrate twice: the schema must be idempotent
	require.NoError(t, db.Migrate(ctx))

	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := startPostgres(t)

	repotest.Run(t, func(t *testing.T) repotest.Repositories {
		_, err := db.ExecContext(context.Background(), `TRUNCATE holdings, funds`)
		require.NoError(t, err)

		return repotest.Repositories{
			Funds:    NewFundRepository(db),
			Holdings: NewHoldingRepository(db),
		}
	})
}
