package health

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("health check timed out")

// TimeoutError is returned when a check does not finish within its timeout.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Health function timed out after %d ms!", e.After.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout } //nolint:errorlint // sentinel identity

// PanicError carries a panic recovered from a check.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
