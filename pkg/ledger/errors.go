package ledger

import "errors"

// ErrNotFound is returned when an account or transaction does not exist or
// does not belong to the requesting user. Ownership misses deliberately look
// identical to absent rows.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned for malformed input (non-positive amount, unknown
// type or interval) before any store write is attempted.
var ErrValidation = errors.New("invalid input")
