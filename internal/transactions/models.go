package transactions

import (
	"time"

	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateInput carries every field needed to record a new transaction.
type CreateInput struct {
	Type        domain.TransactionType
	Value       decimal.Decimal
	Currency    domain.Currency
	Description string
	Date        time.Time
}

// Patch lists the fields to change in UpdateTransaction. A nil field keeps
// the stored value; a non-nil field replaces it, even when it points to an
// empty string.
type Patch struct {
	Type        *domain.TransactionType
	Value       *decimal.Decimal
	Currency    *domain.Currency
	Description *string
	Date        *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Type == nil && p.Value == nil && p.Currency == nil && p.Description == nil && p.Date == nil
}

// Fields returns the names of the fields present in the patch, for logging.
func (p Patch) Fields() []string {
	var fields []string
	if p.Type != nil {
		fields = append(fields, "type")
	}
	if p.Value != nil {
		fields = append(fields, "value")
	}
	if p.Currency != nil {
		fields = append(fields, "currency")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Date != nil {
		fields = append(fields, "date")
	}
	return fields
}
