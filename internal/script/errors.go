package script

import (
	"errors"
	"fmt"
)

// Errors for script runtime operations.
var (
	// ErrRuntimeClosed is returned when operating on a closed runtime.
	ErrRuntimeClosed = errors.New("script runtime is closed")

	// ErrNotFunction is returned by Call when the global is not a function.
	ErrNotFunction = errors.New("not a function")
)

// CallbackError reports a Lua error raised by a script callback while it
// was being notified from Go.
type CallbackError struct {
	Callback string
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("lua callback %s: %v", e.Callback, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
