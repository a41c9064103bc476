package resilience

import (
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// ContentionError wraps an error caused by a busy shared resource, such as
// an advisory lock held by a concurrent writer. It is safe to retry.
type ContentionError struct {
	Err error
}

func (e *ContentionError) Error() string { return e.Err.Error() }

func (e *ContentionError) Unwrap() error { return e.Err }

// NewContentionError marks err as retryable contention.
func NewContentionError(err error) *ContentionError {
	return &ContentionError{Err: err}
}

// IsContention reports whether the error (or any error in its chain) is a
// ContentionError or a filesystem-level busy condition.
func IsContention(err error) bool {
	if err == nil {
		return false
	}

	var ce *ContentionError
	if errors.As(err, &ce) {
		return true
	}

	if errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EBUSY) {
		return true
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Timeout() {
		return true
	}

	// Heuristic for wrapped lock errors that lost their type.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource temporarily unavailable") ||
		strings.Contains(msg, "lock held")
}
