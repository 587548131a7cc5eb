package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrInvalidInput   = errors.New("missing or invalid input")
	ErrActionInFlight = errors.New("another action is already in flight")
	ErrMarketNotEnded = errors.New("market has not ended yet")
	ErrNotAdmin       = errors.New("connected account is not the market admin")
	ErrLockHeld       = errors.New("lock already held")
)

// RevertError carries the human-readable revert reason supplied by a
// contract. Write failures prefer this reason over generic messages when
// surfaced to the user.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// RevertReason extracts the contract-supplied reason from err, if any.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) && re.Reason != "" {
		return re.Reason, true
	}
	return "", false
}
