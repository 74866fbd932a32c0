package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// DateFormat is the calendar-date layout accepted by ParseDate.
const DateFormat = "2006-01-02"

// now is replaced in tests to pin "today".
var now = time.Now

// TransactionType tells whether money came in or went out.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Outcome TransactionType = "OUTCOME"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Income || t == Outcome
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType parses "income"/"INCOME" and "outcome"/"OUTCOME".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", newValidationError("type", fmt.Sprintf("invalid transaction type: %q", s))
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD string into midnight of that day in the
// local time zone.
func ParseDate(s string) (time.Time, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return time.Time{}, newValidationError("date", "invalid date")
	}
	return d.In(time.Local), nil
}

// Transaction is a single income or outcome entry.
//
// Every constructor and setter checks the same invariants: the description
// is not blank, the date is set and not after today (local calendar day),
// and the amount is a valid Money.
type Transaction struct {
	id          string
	txType      TransactionType
	amount      Money
	description string
	date        time.Time
}

// NewTransaction builds a transaction with a freshly generated identity.
func NewTransaction(txType TransactionType, amount Money, description string, date time.Time) (*Transaction, error) {
	return NewTransactionWithID("", txType, amount, description, date)
}

// NewTransactionWithID builds a transaction that keeps the given identity.
// It is used when reconstructing stored transactions; an empty id gets a new
// one generated.
func NewTransactionWithID(id string, txType TransactionType, amount Money, description string, date time.Time) (*Transaction, error) {
	if err := validateType(txType); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	if id == "" {
		id = uuid.New().String()
	}

	return &Transaction{
		id:          id,
		txType:      txType,
		amount:      amount,
		description: description,
		date:        date,
	}, nil
}

func (t *Transaction) ID() string {
	return t.id
}

func (t *Transaction) Type() TransactionType {
	return t.txType
}

func (t *Transaction) Amount() Money {
	return t.amount
}

func (t *Transaction) Description() string {
	return t.description
}

func (t *Transaction) Date() time.Time {
	return t.date
}

// SetType changes the type; t is untouched on error.
func (t *Transaction) SetType(txType TransactionType) error {
	if err := validateType(txType); err != nil {
		return err
	}
	t.txType = txType
	return nil
}

// SetAmount changes the amount; t is untouched on error.
func (t *Transaction) SetAmount(amount Money) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	t.amount = amount
	return nil
}

// SetDescription changes the description; t is untouched on error.
func (t *Transaction) SetDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	t.description = description
	return nil
}

// SetDate changes the date; t is untouched on error.
func (t *Transaction) SetDate(date time.Time) error {
	if err := validateDate(date); err != nil {
		return err
	}
	t.date = date
	return nil
}

func validateType(txType TransactionType) error {
	if !txType.Valid() {
		return newValidationError("type", fmt.Sprintf("invalid transaction type: %q", string(txType)))
	}
	return nil
}

func validateAmount(amount Money) error {
	if amount.IsZero() {
		return newValidationError("amount", "amount is required")
	}
	if !amount.currency.Valid() {
		return newValidationError("currency", fmt.Sprintf("unsupported currency: %q", string(amount.currency)))
	}
	return nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return newValidationError("description", "description is required")
	}
	return nil
}

// validateDate compares calendar days in the local zone so the time of day
// never matters.
func validateDate(date time.Time) error {
	if date.IsZero() {
		return newValidationError("date", "invalid date")
	}

	today := civil.DateOf(now().In(time.Local))
	day := civil.DateOf(date.In(time.Local))
	if day.After(today) {
		return newValidationError("date", "transaction date cannot be in the future")
	}
	return nil
}
