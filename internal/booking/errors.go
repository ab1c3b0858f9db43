package booking

import (
	"errors"
	"fmt"
)

// The engine's failure taxonomy. Callers map these onto transport codes:
// invalid input is never retryable without changing the request, a slot
// conflict is retryable after a fresh availability read, an identity
// conflict needs manual reconciliation.
var (
	ErrNoEligiblePractitioner = errors.New("no eligible practitioner for the requested services")
	ErrSlotConflict           = errors.New("requested slot is no longer available")
	ErrIdentityConflict       = errors.New("email and phone resolve to different clients")
)

type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}
