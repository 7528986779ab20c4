package services

import "errors"

// Fatal finalization errors. Any of them aborts the run and rolls the
// transaction back.
var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchNotFinished    = errors.New("match is not finished")
	ErrSeasonNotFound      = errors.New("season not found")
	ErrFinalizationTimeout = errors.New("match finalization timed out")
)

// ErrValidationFailed wraps rejected caller input.
var ErrValidationFailed = errors.New("validation failed")
