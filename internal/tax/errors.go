package tax

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials aborts a calculation pass before any
	// lookup happens. Totals stay at their reset value.
	ErrMissingCredentials = errors.New("tax api credentials are not configured")

	// ErrMissingOrigin means a product has no origin address and no
	// upstream override was supplied. Tax must never be computed
	// against a fabricated origin, so this aborts the whole pass.
	ErrMissingOrigin = errors.New("no origin address available for product")
)

// VerificationError wraps a destination address verification failure.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("destination verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// LookupError wraps a tax engine failure for one package. Any lookup
// failure aborts the whole pass, since totals must not be presented as
// correct when one package among several failed.
type LookupError struct {
	CartID       string
	PackageIndex int
	Err          error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("tax lookup failed for cart %s package %d: %v", e.CartID, e.PackageIndex, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
