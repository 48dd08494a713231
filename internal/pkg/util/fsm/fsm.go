package fsm

import (
	"errors"

	"github.com/looplab/fsm"
)

// IsRealError reports whether an error returned by fsm.Event is an actual
// failure. A NoTransitionError (event fired into the current state) and a
// CanceledError (a guard declined the transition) leave the machine in a
// valid state and are not failures.
func IsRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError

	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}

	return true
}

// IsInvalidEvent reports whether the error means the event is not permitted
// from the machine's current state.
func IsInvalidEvent(err error) bool {
	if err == nil {
		return false
	}
	var invalid fsm.InvalidEventError
	return errors.As(err, &invalid)
}
