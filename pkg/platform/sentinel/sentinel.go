package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain error codes.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: a uniqueness or version guard rejected the write
//   - ErrStale: the write carried an older updatedAt than the stored row
//   - ErrInvalidState: entity in wrong lifecycle state for the operation
//   - ErrUnavailable: backend temporarily unreachable
//   - ErrTimeout: backend did not acknowledge within the write deadline
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStale        = errors.New("stale write")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
)
