package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded errors:
// - ErrNotFound: the record does not exist in the requested domain
// - ErrConflict: a record with the same key already exists
// - ErrInvalidState: the record is in a state that forbids the operation (tombstoned)
// - ErrUnavailable: a backend is temporarily unreachable
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
