package repository

import (
	"fmt"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
)

// TransactionsStore is the store holding TransactionRecord documents.
const TransactionsStore = "transactions"

// TransactionRecord is the at-rest layout of a transaction. Field names and
// numeric encodings are part of the file format; do not change them without
// a store version bump.
type TransactionRecord struct {
	ID             string  `json:"id"`
	Date           int64   `json:"date"` // unix milliseconds
	Type           int     `json:"type"`
	AmountValue    float64 `json:"amountValue"`
	AmountCurrency int     `json:"amountCurrency"`
	Description    string  `json:"description"`
}

// Persisted codes. Append only; existing numbers are stored on disk.
var (
	transactionTypeCodes = map[domain.TransactionType]int{
		domain.Income:  0,
		domain.Outcome: 1,
	}

	currencyCodes = map[domain.Currency]int{
		domain.USD: 0,
	}
)

// StoreConfigs declares every store this package reads or writes.
func StoreConfigs() []kvstore.StoreConfig {
	return []kvstore.StoreConfig{
		{Name: TransactionsStore, KeyPath: "id"},
	}
}

// DecodeError reports a persisted record that cannot be turned back into a
// domain entity.
type DecodeError struct {
	Store string
	ID    string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s record %q: %v", e.Store, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransactionMapper maps domain.Transaction to TransactionRecord and back.
type TransactionMapper struct{}

func (TransactionMapper) StoreName() string {
	return TransactionsStore
}

func (TransactionMapper) ToPersistence(t *domain.Transaction) (TransactionRecord, error) {
	typeCode, ok := transactionTypeCodes[t.Type()]
	if !ok {
		return TransactionRecord{}, fmt.Errorf("no persisted code for transaction type %q", t.Type())
	}
	currencyCode, ok := currencyCodes[t.Amount().Currency()]
	if !ok {
		return TransactionRecord{}, fmt.Errorf("no persisted code for currency %q", t.Amount().Currency())
	}

	value, ok := t.Amount().Float64()
	if !ok {
		return TransactionRecord{}, &domain.ValidationError{Field: "amount", Message: "amount cannot be stored exactly"}
	}

	return TransactionRecord{
		ID:             t.ID(),
		Date:           t.Date().UnixMilli(),
		Type:           typeCode,
		AmountValue:    value,
		AmountCurrency: currencyCode,
		Description:    t.Description(),
	}, nil
}

func (TransactionMapper) ToDomain(raw TransactionRecord) (*domain.Transaction, error) {
	txType, err := transactionTypeFromCode(raw.Type)
	if err != nil {
		return nil, &DecodeError{Store: TransactionsStore, ID: raw.ID, Err: err}
	}
	currency, err := currencyFromCode(raw.AmountCurrency)
	if err != nil {
		return nil, &DecodeError{Store: TransactionsStore, ID: raw.ID, Err: err}
	}

	amount, err := domain.NewMoneyFromFloat(raw.AmountValue, currency)
	if err != nil {
		return nil, &DecodeError{Store: TransactionsStore, ID: raw.ID, Err: err}
	}

	t, err := domain.NewTransactionWithID(raw.ID, txType, amount, raw.Description, time.UnixMilli(raw.Date))
	if err != nil {
		return nil, &DecodeError{Store: TransactionsStore, ID: raw.ID, Err: err}
	}
	return t, nil
}

func transactionTypeFromCode(code int) (domain.TransactionType, error) {
	for t, c := range transactionTypeCodes {
		if c == code {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type code %d", code)
}

func currencyFromCode(code int) (domain.Currency, error) {
	for cur, c := range currencyCodes {
		if c == code {
			return cur, nil
		}
	}
	return "", fmt.Errorf("unknown currency code %d", code)
}
