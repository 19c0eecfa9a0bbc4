// Package invocation defines the Record describing one remote method call.
//
// A Record is produced by the deserialization layer for every incoming call and
// consumed exactly once by the dispatcher. It is never mutated after New returns.
package invocation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrEmptyField is returned by New when a required name is empty.
var ErrEmptyField = errors.New("invocation: required field is empty")

// Record carries the data for a single remote call.
type Record struct {
	targetID      string // Identifier of the addressed target, e.g. "T1"
	interfaceName string // RPC interface the method belongs to, e.g. "Clickable"
	methodName    string // Method on that interface, e.g. "OnClick"
	arguments     []any  // Positional arguments, never nil
}

// New validates the names and builds an immutable Record.
// A nil args slice is stored as an empty one; the slice is copied.
func New(targetID, interfaceName, methodName string, args ...any) (*Record, error) {
	switch {
	case targetID == "":
		return nil, fmt.Errorf("%w: target id", ErrEmptyField)
	case interfaceName == "":
		return nil, fmt.Errorf("%w: interface name", ErrEmptyField)
	case methodName == "":
		return nil, fmt.Errorf("%w: method name", ErrEmptyField)
	}
	arguments := make([]any, len(args))
	copy(arguments, args)
	return &Record{
		targetID:      targetID,
		interfaceName: interfaceName,
		methodName:    methodName,
		arguments:     arguments,
	}, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and
// statically known records.
func MustNew(targetID, interfaceName, methodName string, args ...any) *Record {
	r, err := New(targetID, interfaceName, methodName, args...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Record) TargetID() string  { return r.targetID }
func (r *Record) Interface() string { return r.interfaceName }
func (r *Record) Method() string    { return r.methodName }

// Arguments returns a copy of the positional arguments.
func (r *Record) Arguments() []any {
	out := make([]any, len(r.arguments))
	copy(out, r.arguments)
	return out
}

func (r *Record) NumArguments() int { return len(r.arguments) }

// Argument returns the i-th argument. It panics if i is out of range.
func (r *Record) Argument(i int) any { return r.arguments[i] }

// Equal reports whether both records carry the same names and deeply equal arguments.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.targetID == o.targetID &&
		r.interfaceName == o.interfaceName &&
		r.methodName == o.methodName &&
		reflect.DeepEqual(r.arguments, o.arguments)
}

// String renders the record as target:Interface.Method([args]).
func (r *Record) String() string {
	parts := make([]string, len(r.arguments))
	for i, a := range r.arguments {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return r.targetID + ":" + r.interfaceName + "." + r.methodName + "([" + strings.Join(parts, ", ") + "])"
}
