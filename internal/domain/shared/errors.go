package shared

// DomainError is a business-rule violation with a stable machine-readable
// code. The HTTP layer maps codes onto status codes; the message is safe
// to show to API clients.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches by code, so a wrapped or re-created DomainError still
// compares equal to its sentinel under errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a domain error with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Generic errors shared by all aggregates.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Money-movement errors raised by the ledger aggregates.
var (
	ErrInvalidAmount      = NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	ErrExceedsOutstanding = NewDomainError("EXCEEDS_OUTSTANDING", "Amount exceeds outstanding balance")
	ErrExceedsUnallocated = NewDomainError("EXCEEDS_UNALLOCATED", "Amount exceeds unallocated balance")
)
