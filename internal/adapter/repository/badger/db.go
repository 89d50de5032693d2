// Package badger stores the fund catalog and holdings ledger in an embedded
// BadgerDB through badgerhold.
package badger

import (
	"errors"
	"fmt"
	"os"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// maxTxnAttempts bounds optimistic transaction retries on write conflicts
const maxTxnAttempts = 100

// DB manages the Badger database connection
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the store at path. An empty path keeps all data in memory.
func Open(path string, logger arbor.ILogger) (*DB, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil // badger's own logger is replaced by arbor

	if path == "" {
		options.InMemory = true
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		options.Dir = path
		options.ValueDir = path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Bool("in_memory", path == "").Msg("Badger database initialized")

	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store
func (db *DB) Store() *badgerhold.Store {
	return db.store
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.store != nil {
		return db.store.Close()
	}
	return nil
}

// update runs fn in a read-write transaction, retrying while Badger reports a
// conflict with a concurrently committed transaction.
func (db *DB) update(fn func(txn *badgerdb.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		err = db.store.Badger().Update(fn)
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}
		if attempt%10 == 0 {
			db.logger.Debug().Int("attempt", attempt).Msg("Retrying conflicting transaction")
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Microsecond)
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxnAttempts, err)
}
