package transactions

import (
	"context"

	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/logger"
)

// Service is the application entry point for transaction bookkeeping.
type Service struct {
	repo Repository
}

// NewService creates a Service on top of a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateTransaction validates the input into a new Transaction and saves it.
// Validation errors from domain constructors are returned as they are.
func (s *Service) CreateTransaction(ctx context.Context, in CreateInput) (*domain.Transaction, error) {
	amount, err := domain.NewMoney(in.Value, in.Currency)
	if err != nil {
		return nil, err
	}

	t, err := domain.NewTransaction(in.Type, amount, in.Description, in.Date)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("transaction_id", saved.ID()).Str("type", saved.Type().String()).Msg("Transaction created")

	return saved, nil
}

// GetAllTransactions returns whatever the repository returns, in its order.
func (s *Service) GetAllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.repo.FindAll(ctx)
}

// GetTransactionByID returns a *NotFoundError when id is unknown.
func (s *Service) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newTransactionNotFound(id)
	}
	return t, nil
}

// UpdateTransaction merges the patch into the stored transaction and saves
// a freshly constructed Transaction carrying the original id, so the whole
// merged state goes through validation at once. The stored Money is reused
// unless the patch touches the value or the currency.
func (s *Service) UpdateTransaction(ctx context.Context, id string, patch Patch) (*domain.Transaction, error) {
	existing, err := s.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	txType := existing.Type()
	if patch.Type != nil {
		txType = *patch.Type
	}

	amount := existing.Amount()
	if patch.Value != nil || patch.Currency != nil {
		value := amount.Value()
		if patch.Value != nil {
			value = *patch.Value
		}
		currency := amount.Currency()
		if patch.Currency != nil {
			currency = *patch.Currency
		}

		amount, err = domain.NewMoney(value, currency)
		if err != nil {
			return nil, err
		}
	}

	description := existing.Description()
	if patch.Description != nil {
		description = *patch.Description
	}

	date := existing.Date()
	if patch.Date != nil {
		date = *patch.Date
	}

	updated, err := domain.NewTransactionWithID(existing.ID(), txType, amount, description, date)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, updated)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("transaction_id", id).Strs("fields", patch.Fields()).Msg("Transaction updated")

	return saved, nil
}

// DeleteTransaction removes a transaction after checking that it exists.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.GetTransactionByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}
