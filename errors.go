package leasing

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("leasing: not found")
	ErrAlreadyExists = errors.New("leasing: already exists")
	ErrInvalidInput  = errors.New("leasing: invalid input")
	ErrOutOfScope    = errors.New("leasing: market not in caller scope")

	// Lease errors
	ErrLeaseNotFound     = errors.New("leasing: lease not found")
	ErrNoActiveLease     = errors.New("leasing: no active lease")
	ErrStallOccupied     = errors.New("leasing: stall already has an active lease")
	ErrStallNotFound     = errors.New("leasing: stall not found")
	ErrLeaseTerminated   = errors.New("leasing: lease is terminated")
	ErrPendingPayments   = errors.New("leasing: lease has unpaid invoices")
	ErrInvalidTransition = errors.New("leasing: invalid lease status transition")

	// Invoice and payment errors
	ErrInvoiceNotFound  = errors.New("leasing: invoice not found")
	ErrDuplicatePeriod  = errors.New("leasing: renewal invoice already exists for period")
	ErrInvalidAmount    = errors.New("leasing: invalid payment amount")
	ErrInvalidDate      = errors.New("leasing: invalid date")
	ErrInvalidStatus    = errors.New("leasing: invalid invoice status")
	ErrOverpayment      = errors.New("leasing: payment exceeds remaining balance")

	// Store errors
	ErrConflict        = errors.New("leasing: concurrent update conflict")
	ErrStoreNotReady   = errors.New("leasing: store not ready")
	ErrStoreClosed     = errors.New("leasing: store is closed")
	ErrMigrationFailed = errors.New("leasing: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("leasing: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "leasing: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("leasing: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLeaseNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrStallNotFound) ||
		errors.Is(err, ErrNoActiveLease)
}

// IsConflict returns true if the error came from a concurrent update or
// a uniqueness guard. The operation can usually be retried after re-reading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicatePeriod) ||
		errors.Is(err, ErrStallOccupied) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsValidation returns true if the error is a validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStatus)
}
