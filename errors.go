package reactive

import (
	"errors"
	"fmt"
)

// Sentinel errors for events and properties.
var (
	// ErrPoisoned is returned by Invoke, Read, Write and the convenience
	// accessors after a callback panicked while the registry lock was held.
	// The condition is sticky until ClearPoison is called.
	ErrPoisoned = errors.New("registry is poisoned")

	// ErrClosed is returned by Invoke after the event has been closed.
	ErrClosed = errors.New("registry is closed")

	// ErrCallbackPanic matches a *PanicError.
	ErrCallbackPanic = errors.New("callback panicked")
)

// PanicError describes a panic raised while the registry lock was held,
// either by a subscriber callback or by the writer itself.
type PanicError struct {
	// Name is the registry name set with WithName.
	Name string

	// HookID identifies the subscription whose callback panicked.
	// It is empty when the panic came from the writer itself (an Update
	// function or code holding a WriteGuard).
	HookID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	if e.HookID == "" {
		return fmt.Sprintf("%s: writer panicked: %v", displayName(e.Name), e.Value)
	}
	return fmt.Sprintf("%s: callback for hook %s panicked: %v", displayName(e.Name), e.HookID, e.Value)
}

// Is allows errors.Is to match PanicError with ErrCallbackPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrCallbackPanic
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// PoisonError is returned when an operation is attempted on a poisoned registry.
type PoisonError struct {
	// Name is the registry name set with WithName.
	Name string

	// Cause is the panic that poisoned the registry.
	Cause *PanicError
}

// Error implements the error interface.
func (e *PoisonError) Error() string {
	return displayName(e.Name) + ": " + ErrPoisoned.Error() + " (" + e.Cause.Error() + ")"
}

// Is allows errors.Is to match PoisonError with ErrPoisoned.
func (e *PoisonError) Is(target error) bool {
	return target == ErrPoisoned
}

// Unwrap returns the panic that poisoned the registry.
func (e *PoisonError) Unwrap() error {
	return e.Cause
}

func displayName(name string) string {
	if name == "" {
		return "reactive"
	}
	return name
}
