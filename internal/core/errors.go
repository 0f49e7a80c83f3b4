package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds surfaced by the goal and ledger services. Callers are
// expected to classify failures with errors.Is against these sentinels;
// anything that matches none of them is a storage failure propagated
// from the repository.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient savings")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
)

// InsufficientFundsError reports a requested amount that exceeds the
// user's computed cumulative savings. Available always carries the
// figure the check was made against so the caller can surface it.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal

	// PriorRemoved is set when the check ran after previously linked
	// contribution transactions had already been deleted. There is no
	// rollback for that step, so the message must say so.
	PriorRemoved bool
}

func (e *InsufficientFundsError) Error() string {
	msg := fmt.Sprintf("insufficient savings: requested %s exceeds available %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
	if e.PriorRemoved {
		msg += "; previously linked transactions were already removed, manual correction may be required"
	}
	return msg
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted reason.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
