package repository

import (
	"context"

	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
)

// TransactionRepository is the kvstore-backed implementation of
// transactions.Repository.
type TransactionRepository struct {
	base *Base[*domain.Transaction, TransactionRecord]
}

// NewTransactionRepository creates a repository over an opened database.
func NewTransactionRepository(db *kvstore.DB) *TransactionRepository {
	return &TransactionRepository{
		base: NewBase[*domain.Transaction, TransactionRecord](db, TransactionMapper{}),
	}
}

// Save delegates to the shared base repository.
func (r *TransactionRepository) Save(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	return r.base.Save(ctx, t)
}

// FindAll delegates to the shared base repository.
func (r *TransactionRepository) FindAll(ctx context.Context) ([]*domain.Transaction, error) {
	return r.base.FindAll(ctx)
}

// FindByID delegates to the shared base repository.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, bool, error) {
	return r.base.FindByID(ctx, id)
}

// Delete delegates to the shared base repository.
func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	return r.base.Delete(ctx, id)
}

// Records returns every stored record without mapping it to the domain.
// Snapshots use it so that a backup is byte-for-byte the at-rest format.
func (r *TransactionRepository) Records(ctx context.Context) ([]TransactionRecord, error) {
	return kvstore.GetAll[TransactionRecord](ctx, r.base.db, TransactionsStore)
}

// Ensure TransactionRepository implements the service port.
var _ transactions.Repository = (*TransactionRepository)(nil)
