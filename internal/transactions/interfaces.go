package transactions

import (
	"context"

	"github.com/dvloznov/pocket-ledger/internal/domain"
)

// Repository is the storage port the Service depends on. Implementations
// must return (nil, false, nil) from FindByID when nothing matches.
type Repository interface {
	Save(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	FindAll(ctx context.Context) ([]*domain.Transaction, error)
	FindByID(ctx context.Context, id string) (*domain.Transaction, bool, error)
	Delete(ctx context.Context, id string) error
}
