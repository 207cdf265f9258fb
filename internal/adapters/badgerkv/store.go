package badgerkv

// Package badgerkv backs the settings port with BadgerDB, an embedded
// key-value store. It suits single-node deployments where policy state
// must survive restarts without an external database.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/filegate/filegate/internal/ports"
)

// Options groups construction parameters for Store.
type Options struct {
	// Dir is the on-disk location of the Badger database. Required unless
	// InMemory is set.
	Dir string
	// InMemory runs Badger without persistence, for tests.
	InMemory bool
	// Logger receives open/close diagnostics. Badger's own chatter is
	// discarded.
	Logger *slog.Logger
}

// Store is a Badger-backed ports.SettingsStore.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ ports.SettingsStore = (*Store)(nil)

// Open opens (creating if necessary) the Badger database.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" && !opts.InMemory {
		return nil, errors.New("badgerkv: Dir is required")
	}
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "badgerkv")
		logger.Info("badger settings store opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database. The store is unusable afterwards.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ports.ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}
