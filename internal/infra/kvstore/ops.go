package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Save writes record into store, replacing any record with the same
// primary key, and returns the record that was written.
func Save[T any](ctx context.Context, db *DB, store string, record T) (T, error) {
	var zero T

	keyPath, err := db.keyPathFor(store)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return zero, &OperationError{Op: "save", Store: store, Err: fmt.Errorf("encode record: %w", err)}
	}

	key, err := primaryKey(data, keyPath)
	if err != nil {
		return zero, &OperationError{Op: "save", Store: store, Err: err}
	}

	err = db.update(ctx, "save", store, func(b *bolt.Bucket) error {
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return zero, err
	}
	return record, nil
}

// GetAll returns every record in store in key order.
func GetAll[T any](ctx context.Context, db *DB, store string) ([]T, error) {
	if _, err := db.keyPathFor(store); err != nil {
		return nil, err
	}

	var records []T
	err := db.view(ctx, "getAll", store, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var r T
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode record %q: %w", k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the record stored under key. The boolean is false when no
// record matches; that is not an error.
func Get[T any](ctx context.Context, db *DB, store, key string) (T, bool, error) {
	var (
		record T
		found  bool
	)

	if _, err := db.keyPathFor(store); err != nil {
		return record, false, err
	}

	err := db.view(ctx, "get", store, func(b *bolt.Bucket) error {
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("decode record %q: %w", key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return record, found, nil
}

// Delete removes the record stored under key. Deleting a missing key is a
// no-op.
func Delete(ctx context.Context, db *DB, store, key string) error {
	if _, err := db.keyPathFor(store); err != nil {
		return err
	}
	return db.update(ctx, "delete", store, func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

func (db *DB) keyPathFor(store string) (string, error) {
	keyPath, ok := db.keyPaths[store]
	if !ok {
		return "", &OperationError{Op: "lookup", Store: store, Err: ErrUnknownStore}
	}
	return keyPath, nil
}

// primaryKey reads the keyPath field of an encoded record. Strings and
// numbers are accepted as keys.
func primaryKey(data []byte, keyPath string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("record is not an object: %w", err)
	}

	raw, ok := fields[keyPath]
	if !ok {
		return "", fmt.Errorf("%w: field %q is absent", ErrMissingKey, keyPath)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: field %q is empty", ErrMissingKey, keyPath)
		}
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("%w: field %q must be a string or a number", ErrMissingKey, keyPath)
	}
	if n == "" {
		return "", fmt.Errorf("%w: field %q is null", ErrMissingKey, keyPath)
	}
	return n.String(), nil
}
