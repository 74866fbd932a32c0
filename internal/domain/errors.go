package domain

// ValidationError reports a value that violates a domain invariant. It is
// returned by constructors and setters and never wraps another error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
