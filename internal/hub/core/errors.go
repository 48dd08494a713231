package core

import "errors"

// Failure kinds of the mutation path. Gateways wrap these with request
// context via fmt.Errorf and callers classify with errors.Is; the HTTP layer
// maps them to status codes at the boundary only.
var (
	// ErrValidation marks malformed or missing required input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an identifier that does not resolve to a vehicle.
	ErrNotFound = errors.New("vehicle not found")

	// ErrConflict marks a version mismatch on update. It indicates an
	// out-of-band writer and surfaces as a persistence failure.
	ErrConflict = errors.New("vehicle version conflict")

	// ErrPersistence marks a record store failure. Nothing is broadcast for
	// a mutation that failed to persist.
	ErrPersistence = errors.New("persistence failed")

	// ErrBroadcast marks a fanout failure after a successful persist. It is
	// logged, never surfaced as a failure of the originating request.
	ErrBroadcast = errors.New("broadcast failed")
)
