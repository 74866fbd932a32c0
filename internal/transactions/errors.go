package transactions

import "fmt"

// NotFoundError is returned when an identity lookup misses.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found", e.Entity, e.ID)
}

func newTransactionNotFound(id string) *NotFoundError {
	return &NotFoundError{Entity: "Transaction", ID: id}
}
