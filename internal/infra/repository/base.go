package repository

import (
	"context"
	"fmt"

	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
)

// Mapper converts between a domain entity D and its persisted record P and
// names the store the records live in.
type Mapper[D any, P any] interface {
	StoreName() string
	ToDomain(raw P) (D, error)
	ToPersistence(entity D) (P, error)
}

// Base implements save/find/delete for any entity that has a Mapper. The
// kvstore.DB handle is shared and must already be open.
type Base[D any, P any] struct {
	db     *kvstore.DB
	mapper Mapper[D, P]
}

// NewBase wires a mapper to a database handle.
func NewBase[D any, P any](db *kvstore.DB, mapper Mapper[D, P]) *Base[D, P] {
	return &Base[D, P]{
		db:     db,
		mapper: mapper,
	}
}

// Save writes the entity (overwriting by primary key) and returns the entity
// rebuilt from the record. A record that does not map back is never written,
// so later reads cannot fail on it.
func (r *Base[D, P]) Save(ctx context.Context, entity D) (D, error) {
	var zero D

	record, err := r.mapper.ToPersistence(entity)
	if err != nil {
		return zero, fmt.Errorf("Save: mapping entity: %w", err)
	}

	saved, err := r.mapper.ToDomain(record)
	if err != nil {
		return zero, fmt.Errorf("Save: record does not map back: %w", err)
	}

	if _, err := kvstore.Save(ctx, r.db, r.mapper.StoreName(), record); err != nil {
		return zero, fmt.Errorf("Save: %w", err)
	}
	return saved, nil
}

// FindAll returns every entity in store order.
func (r *Base[D, P]) FindAll(ctx context.Context) ([]D, error) {
	records, err := kvstore.GetAll[P](ctx, r.db, r.mapper.StoreName())
	if err != nil {
		return nil, fmt.Errorf("FindAll: %w", err)
	}

	entities := make([]D, 0, len(records))
	for _, rec := range records {
		e, err := r.mapper.ToDomain(rec)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// FindByID returns the entity stored under id, or false when there is none.
func (r *Base[D, P]) FindByID(ctx context.Context, id string) (D, bool, error) {
	var zero D

	record, found, err := kvstore.Get[P](ctx, r.db, r.mapper.StoreName(), id)
	if err != nil {
		return zero, false, fmt.Errorf("FindByID: %w", err)
	}
	if !found {
		return zero, false, nil
	}

	e, err := r.mapper.ToDomain(record)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// Delete removes the entity stored under id.
func (r *Base[D, P]) Delete(ctx context.Context, id string) error {
	if err := kvstore.Delete(ctx, r.db, r.mapper.StoreName(), id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
