package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/fission/embed"
)

// Compile-time check.
var _ embed.Store = (*Badger)(nil)

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Badger is an embed.Store backed by BadgerDB.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger store.
func OpenBadger(optFns ...func(o *BadgerOptions)) (*Badger, error) {
	var o BadgerOptions
	for _, fn := range optFns {
		fn(&o)
	}

	if !o.InMemory && o.Path == "" {
		return nil, errors.New("cache: path is required for a persistent store")
	}

	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(o.Path, 0o750); err != nil {
			return nil, fmt.Errorf("cache: create directory %s: %w", o.Path, err)
		}
		opts = badger.DefaultOptions(o.Path)
	}

	opts = opts.WithSyncWrites(o.SyncWrites).WithNumVersionsToKeep(1)

	if o.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: o.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}

	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]float32, bool, error) {
	var raw []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}

	return vec, true, nil
}

func (b *Badger) Put(_ context.Context, key string, vec []float32) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeVector(vec))
	})
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
