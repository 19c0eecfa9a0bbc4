// Package rpc binds RPC interfaces to handler implementations and dispatches
// invocation records to them.
//
// Each target owns one Manager per interface it registered. The Manager's method
// table is built once, at construction time, from the interface's method set:
//
//	Dispatch(target, record)
//	  → target.RPCManager(record.Interface())
//	    → Manager.ApplyInvocation: resolve method → check arguments → call handler
package rpc

import (
	"context"
	"reflect"
	"sort"

	"rpc-bridge/invocation"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

type methodType struct {
	name     string
	fn       reflect.Value  // Method value bound to the implementation
	params   []reflect.Type // Argument types, context excluded
	withCtx  bool           // First parameter is a context.Context
	variadic bool           // Last param is passed as one slice argument
	errOut   int            // Index of the trailing error result, -1 if none
}

// Manager binds one interface to one implementation. Neither ever changes.
type Manager struct {
	name   string
	iface  reflect.Type
	impl   any
	method map[string]*methodType
}

// NewManager binds impl to the interface type I, named after I.
func NewManager[I any](impl I) (*Manager, error) {
	return NewNamedManager[I]("", impl)
}

// NewNamedManager binds impl to the interface type I under the given name.
// An empty name falls back to I's type name, so an anonymous I needs one.
func NewNamedManager[I any](name string, impl I) (*Manager, error) {
	iface := reflect.TypeFor[I]()
	if iface.Kind() != reflect.Interface {
		return nil, ErrNotInterface
	}
	rcvr := reflect.ValueOf(any(impl))
	if !rcvr.IsValid() || isNilValue(rcvr) {
		return nil, ErrNilImplementation
	}
	if name == "" {
		name = iface.Name()
	}
	if name == "" {
		return nil, ErrUnnamedInterface
	}
	m := &Manager{
		name:   name,
		iface:  iface,
		impl:   any(impl),
		method: make(map[string]*methodType, iface.NumMethod()),
	}
	m.registerMethods(rcvr)
	return m, nil
}

// registerMethods walks the interface's method set. The implementation is
// guaranteed to have every method, since impl is statically an I.
func (m *Manager) registerMethods(rcvr reflect.Value) {
	for i := 0; i < m.iface.NumMethod(); i++ {
		im := m.iface.Method(i)
		if !im.IsExported() {
			continue
		}
		ft := im.Type // Interface method types carry no receiver

		mt := &methodType{
			name:     im.Name,
			fn:       rcvr.MethodByName(im.Name),
			variadic: ft.IsVariadic(),
			errOut:   -1,
		}
		start := 0
		if ft.NumIn() > 0 && ft.In(0) == contextType {
			mt.withCtx = true
			start = 1
		}
		for j := start; j < ft.NumIn(); j++ {
			mt.params = append(mt.params, ft.In(j))
		}
		if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
			mt.errOut = n - 1
		}
		m.method[im.Name] = mt
	}
}

// Interface returns the name invocations use to address this manager.
func (m *Manager) Interface() string { return m.name }

// InterfaceType returns the Go interface type the manager was built for.
func (m *Manager) InterfaceType() reflect.Type { return m.iface }

// Implementation returns the bound handler.
func (m *Manager) Implementation() any { return m.impl }

// Methods lists the callable method names in sorted order.
func (m *Manager) Methods() []string {
	names := make([]string, 0, len(m.method))
	for name := range m.method {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signature returns the argument types of the named method, without the
// injected context.
func (m *Manager) Signature(method string) ([]reflect.Type, bool) {
	mt, ok := m.method[method]
	if !ok {
		return nil, false
	}
	out := make([]reflect.Type, len(mt.params))
	copy(out, mt.params)
	return out, true
}

// ApplyInvocation resolves rec's method, checks its arguments and calls the
// handler. Every failure comes back as an *InvocationError.
func (m *Manager) ApplyInvocation(ctx context.Context, rec *invocation.Record) error {
	mt, ok := m.method[rec.Method()]
	if !ok {
		return m.wrap(rec, &MethodResolutionError{Interface: m.name, Method: rec.Method()})
	}
	in, err := mt.arguments(ctx, rec)
	if err != nil {
		return m.wrap(rec, err)
	}
	if err := mt.call(in); err != nil {
		return m.wrap(rec, err)
	}
	return nil
}

func (m *Manager) wrap(rec *invocation.Record, err error) error {
	return &InvocationError{Interface: m.name, Method: rec.Method(), Err: err}
}

// arguments builds the call's input values. No conversion is applied: each
// argument must be assignable to its parameter as is.
func (mt *methodType) arguments(ctx context.Context, rec *invocation.Record) ([]reflect.Value, error) {
	if rec.NumArguments() != len(mt.params) {
		return nil, &ArgumentMismatchError{
			Method: mt.name,
			Index:  -1,
			Count:  [2]int{len(mt.params), rec.NumArguments()},
		}
	}
	in := make([]reflect.Value, 0, len(mt.params)+1)
	if mt.withCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, want := range mt.params {
		arg := rec.Argument(i)
		if arg == nil {
			if !Nillable(want) {
				return nil, &ArgumentMismatchError{Method: mt.name, Index: i, Want: want}
			}
			in = append(in, reflect.Zero(want))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, &ArgumentMismatchError{Method: mt.name, Index: i, Want: want, Got: v.Type()}
		}
		in = append(in, v)
	}
	return in, nil
}

// call invokes the handler, turning a panic into a *HandlerPanicError.
func (mt *methodType) call(in []reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Value: r}
		}
	}()

	var out []reflect.Value
	if mt.variadic {
		out = mt.fn.CallSlice(in)
	} else {
		out = mt.fn.Call(in)
	}
	if mt.errOut >= 0 && !out[mt.errOut].IsNil() {
		return out[mt.errOut].Interface().(error)
	}
	return nil
}

// Nillable reports whether nil is a valid value of t.
func Nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	}
	return false
}

func isNilValue(v reflect.Value) bool {
	return Nillable(v.Type()) && v.IsNil()
}
