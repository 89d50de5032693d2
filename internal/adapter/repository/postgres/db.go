package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SQLSTATE codes mapped to domain errors
const (
	codeForeignKeyViolation = "23503"
	codeNumericOutOfRange   = "22003"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=fundfolio sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Connect retries NewDB until the database answers or attempts run out
func Connect(ctx context.Context, connectionString string, attempts int, delay time.Duration) (*DB, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := NewDB(connectionString)
		if err == nil {
			return db, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("database not reachable after %d attempts: %w", attempts, lastErr)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS funds (
	id          UUID PRIMARY KEY,
	scheme_code TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	nav         NUMERIC(10, 2) NOT NULL CHECK (nav >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holdings (
	id         UUID PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	fund_id    UUID NOT NULL REFERENCES funds (id) ON DELETE CASCADE,
	quantity   BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (owner_id, fund_id)
);

CREATE INDEX IF NOT EXISTS holdings_owner_idx ON holdings (owner_id);
`

// Migrate creates the funds and holdings tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// pqCode returns the SQLSTATE of a driver error, or "" for other errors
func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

func isOutOfRange(err error) bool {
	return pqCode(err) == codeNumericOutOfRange
}
