package ctxlocal

import "errors"

// Sentinel errors for stack operations.
var (
	// ErrUnbound is returned when the context carries no slot for the stack.
	ErrUnbound = errors.New("ctxlocal: context is not bound to the stack")

	// ErrEmpty is returned by Pop when the stack has no entries.
	ErrEmpty = errors.New("ctxlocal: stack is empty")
)
