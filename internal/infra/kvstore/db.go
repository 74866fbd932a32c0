package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	metaBucket = "__meta"
	versionKey = "version"
	nameKey    = "name"

	fileExt     = ".db"
	lockTimeout = time.Second
)

// StoreConfig declares one store (a bbolt bucket) and the JSON field of its
// records that holds the primary key.
type StoreConfig struct {
	Name    string
	KeyPath string
}

// Config describes a named, versioned database file.
type Config struct {
	// Dir is the directory that holds the database file.
	Dir string

	// Name is the database name; the file is <Dir>/<Name>.db.
	Name string

	// Version is the schema version. Stores are created when the file is new
	// or its stored version is lower than this one.
	Version int

	// Stores lists the stores that must exist after an upgrade.
	Stores []StoreConfig
}

// Validate checks the configuration before anything touches the disk.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("database name is required")
	}
	if c.Version < 1 {
		return fmt.Errorf("database version must be >= 1, got %d", c.Version)
	}

	seen := make(map[string]bool, len(c.Stores))
	for _, s := range c.Stores {
		if s.Name == "" || s.KeyPath == "" {
			return fmt.Errorf("store %q: name and key path are required", s.Name)
		}
		if s.Name == metaBucket {
			return fmt.Errorf("store name %q is reserved", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("store %q declared twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// DB is a small object-store style wrapper around a bbolt file. The handle
// is opened once and shared by every caller.
type DB struct {
	cfg      Config
	keyPaths map[string]string

	mu   sync.RWMutex
	bolt *bolt.DB
}

// New returns an unopened DB. Call Open before using any primitive.
func New(cfg Config) *DB {
	keyPaths := make(map[string]string, len(cfg.Stores))
	for _, s := range cfg.Stores {
		keyPaths[s.Name] = s.KeyPath
	}
	return &DB{
		cfg:      cfg,
		keyPaths: keyPaths,
	}
}

// Path returns the database file location.
func (db *DB) Path() string {
	return filepath.Join(db.cfg.Dir, db.cfg.Name+fileExt)
}

// Name returns the configured database name.
func (db *DB) Name() string {
	return db.cfg.Name
}

// Open opens (creating if needed) the database file and runs the upgrade
// step. Calling Open on an open DB is a no-op. Every failure is an
// *OpenError.
func (db *DB) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &OpenError{Name: db.cfg.Name, Err: err}
	}
	if err := db.cfg.Validate(); err != nil {
		return &OpenError{Name: db.cfg.Name, Err: err}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.bolt != nil {
		return nil
	}

	if db.cfg.Dir != "" {
		if err := os.MkdirAll(db.cfg.Dir, 0o755); err != nil {
			return &OpenError{Name: db.cfg.Name, Err: fmt.Errorf("create data dir: %w", err)}
		}
	}

	handle, err := bolt.Open(db.Path(), 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return &OpenError{Name: db.cfg.Name, Err: err}
	}

	if err := handle.Update(db.upgrade); err != nil {
		_ = handle.Close()
		return &OpenError{Name: db.cfg.Name, Err: err}
	}

	db.bolt = handle
	return nil
}

// upgrade creates the declared stores when the stored version is behind the
// configured one. Existing stores are left as they are.
func (db *DB) upgrade(tx *bolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
	if err != nil {
		return fmt.Errorf("create meta bucket: %w", err)
	}

	stored := 0
	if raw := meta.Get([]byte(versionKey)); raw != nil {
		stored, err = strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("read stored version: %w", err)
		}
	}

	if stored > db.cfg.Version {
		return fmt.Errorf("requested version %d is lower than stored version %d", db.cfg.Version, stored)
	}
	if stored == db.cfg.Version {
		return nil
	}

	for _, s := range db.cfg.Stores {
		if _, err := tx.CreateBucketIfNotExists([]byte(s.Name)); err != nil {
			return fmt.Errorf("create store %q: %w", s.Name, err)
		}
	}

	if err := meta.Put([]byte(nameKey), []byte(db.cfg.Name)); err != nil {
		return fmt.Errorf("write name: %w", err)
	}
	if err := meta.Put([]byte(versionKey), []byte(strconv.Itoa(db.cfg.Version))); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	return nil
}

// Close releases the file. Primitives fail with ErrNotOpened afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.bolt == nil {
		return nil
	}
	err := db.bolt.Close()
	db.bolt = nil
	return err
}

// Version returns the schema version recorded in the file.
func (db *DB) Version(ctx context.Context) (int, error) {
	var version int
	err := db.view(ctx, "version", metaBucket, func(b *bolt.Bucket) error {
		v, err := strconv.Atoi(string(b.Get([]byte(versionKey))))
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	return version, err
}

func (db *DB) view(ctx context.Context, op, store string, fn func(b *bolt.Bucket) error) error {
	return db.run(ctx, op, store, false, fn)
}

func (db *DB) update(ctx context.Context, op, store string, fn func(b *bolt.Bucket) error) error {
	return db.run(ctx, op, store, true, fn)
}

// run executes fn inside one read-only or read-write bbolt transaction
// scoped to a single store.
func (db *DB) run(ctx context.Context, op, store string, writable bool, fn func(b *bolt.Bucket) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.bolt == nil {
		return ErrNotOpened
	}
	if err := ctx.Err(); err != nil {
		return &OperationError{Op: op, Store: store, Err: err}
	}

	txFn := func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(store))
		if b == nil {
			return ErrUnknownStore
		}
		return fn(b)
	}

	var err error
	if writable {
		err = db.bolt.Update(txFn)
	} else {
		err = db.bolt.View(txFn)
	}
	if err != nil {
		return &OperationError{Op: op, Store: store, Err: err}
	}
	return nil
}
