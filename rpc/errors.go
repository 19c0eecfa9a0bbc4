package rpc

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotInterface       = errors.New("rpc: type parameter must be an interface type")
	ErrNilImplementation  = errors.New("rpc: implementation must not be nil")
	ErrDuplicateInterface = errors.New("rpc: interface already registered for target")
	ErrUnnamedInterface   = errors.New("rpc: anonymous interface type needs an explicit name")
)

// InvocationError is the single failure type returned by Manager.ApplyInvocation.
// Err holds the cause: a *MethodResolutionError, an *ArgumentMismatchError,
// a *HandlerPanicError or whatever error the handler returned.
type InvocationError struct {
	Interface string
	Method    string
	Err       error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("rpc: unable to invoke method %s in %s: %v", e.Method, e.Interface, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// MethodResolutionError reports a method name unknown on the interface.
type MethodResolutionError struct {
	Interface string
	Method    string
}

func (e *MethodResolutionError) Error() string {
	return fmt.Sprintf("rpc: interface %s has no method %s", e.Interface, e.Method)
}

// ArgumentMismatchError reports an argument list that does not fit the resolved
// method. Index is -1 for a count mismatch.
type ArgumentMismatchError struct {
	Method string
	Index  int
	Want   reflect.Type // nil for a count mismatch
	Got    reflect.Type // nil when the argument was nil
	Count  [2]int       // wanted and got argument counts
	Reason error        // set when decoding the argument failed
}

func (e *ArgumentMismatchError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("rpc: %s takes %d arguments, got %d", e.Method, e.Count[0], e.Count[1])
	case e.Reason != nil:
		return fmt.Sprintf("rpc: %s argument %d: %v", e.Method, e.Index, e.Reason)
	case e.Got == nil:
		return fmt.Sprintf("rpc: %s argument %d: nil is not a valid %s", e.Method, e.Index, e.Want)
	}
	return fmt.Sprintf("rpc: %s argument %d: want %s, got %s", e.Method, e.Index, e.Want, e.Got)
}

func (e *ArgumentMismatchError) Unwrap() error { return e.Reason }

// HandlerPanicError carries the value a handler panicked with.
type HandlerPanicError struct {
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("rpc: handler panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *HandlerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
