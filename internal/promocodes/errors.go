package promocodes

import (
	"errors"
	"fmt"
)

// Eligibility rejections are deterministic and not retryable; callers surface
// the specific kind to the user.
var (
	// ErrPromocodeNotFound is returned when no promocode matches the given code
	ErrPromocodeNotFound = errors.New("promocode not found")

	// ErrUserNotFound is returned when the redeeming user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrAdminNotFound is returned when the issuing admin does not exist
	ErrAdminNotFound = errors.New("issuing admin not found")

	// ErrDuplicateCode is returned when creating a promocode with a code that already exists
	ErrDuplicateCode = errors.New("promocode code already exists")

	// ErrPromocodeInactive is returned when the promocode status is not ACTIVE
	ErrPromocodeInactive = errors.New("promocode is not active")

	// ErrPromocodeNotYetValid is returned before the promocode's valid_from
	ErrPromocodeNotYetValid = errors.New("promocode is not yet valid")

	// ErrPromocodeExpired is returned after the promocode's valid_until
	ErrPromocodeExpired = errors.New("promocode has expired")

	// ErrAlreadyUsed is returned when the user has already redeemed this promocode
	ErrAlreadyUsed = errors.New("promocode already used")

	// ErrUsageLimitExceeded is returned when the promocode's max_uses is exhausted
	ErrUsageLimitExceeded = errors.New("promocode usage limit exceeded")

	// ErrBalanceNotFound is returned when the user has no MAIN balance to credit
	ErrBalanceNotFound = errors.New("main balance not found")
)

// TransientError wraps storage faults and transaction conflicts. Unlike the
// sentinel rejections above, a TransientError is safe to retry with the same
// input.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient storage error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transientErr(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
