package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrResumeRequired is returned when similarity ranking is enabled but no
// resume profile was supplied. A configuration error, fatal to the whole call.
var ErrResumeRequired = errors.New("similarity ranking enabled but no resume profile supplied")

// BackendError wraps a model-backend HTTP status so retry logic can inspect it.
type BackendError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend HTTP %d", e.StatusCode)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
