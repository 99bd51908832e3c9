package captioning

import (
	"errors"
	"fmt"
)

// ErrCanceled matches every CancellationError with errors.Is.
var ErrCanceled = errors.New("captioning session canceled")

// CancellationError reports that the recognizer or the caller aborted the
// session. Cues emitted before the cancellation stay emitted.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	if e.Err == nil {
		return ErrCanceled.Error()
	}
	return fmt.Sprintf("%s: %v", ErrCanceled, e.Err)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCanceled.
func (e *CancellationError) Is(target error) bool {
	return target == ErrCanceled
}
