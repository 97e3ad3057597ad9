package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds returned by room commands. Adapters map these onto wire
// error codes; everything else is treated as internal.
var (
	ErrValidation  = errors.New("validation")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not-found")
	ErrRateLimited = errors.New("rate-limited")
	ErrConflict    = errors.New("conflict")
)

// Reject carries a command rejection with its kind and a user-facing
// reason. RetryAfter is set only for rate-limit rejections.
type Reject struct {
	Kind       error
	Reason     string
	RetryAfter time.Duration
}

func (r *Reject) Error() string { return r.Reason }

func (r *Reject) Unwrap() error { return r.Kind }

func Rejectf(kind error, format string, args ...any) error {
	return &Reject{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func RateLimited(retryAfter time.Duration) error {
	return &Reject{
		Kind:       ErrRateLimited,
		Reason:     "sending too fast",
		RetryAfter: retryAfter,
	}
}
