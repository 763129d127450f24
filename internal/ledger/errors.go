package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-range input. Detected
// before any persistent write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AccountNotFoundError reports an operation against an account ID that
// does not reference an existing active account.
type AccountNotFoundError struct {
	AccountID int64
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %d not found", e.AccountID)
}

// DuplicateAccountError reports an account creation with an email that
// is already registered.
type DuplicateAccountError struct {
	Email string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("an account with email %s already exists", e.Email)
}

// InsufficientFundsError reports a withdrawal larger than the current
// balance. The balance is left unchanged and no transaction is recorded.
type InsufficientFundsError struct {
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, requested %s",
		e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

// Kind classifies an error for transport-level mapping (HTTP status
// codes, MCP errorInfo categories).
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindDuplicate         Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"

	// KindInternal covers unexpected storage failures. The underlying
	// error is logged server-side and never sent to the caller verbatim.
	KindInternal Kind = "internal"
)

// KindOf returns the Kind for an error. Errors that are none of the
// four business kinds classify as KindInternal.
func KindOf(err error) Kind {
	var (
		validation   *ValidationError
		notFound     *AccountNotFoundError
		duplicate    *DuplicateAccountError
		insufficient *InsufficientFundsError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &duplicate):
		return KindDuplicate
	case errors.As(err, &insufficient):
		return KindInsufficientFunds
	default:
		return KindInternal
	}
}
