package rpc

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"rpc-bridge/invocation"
)

type Point struct {
	X, Y int
}

type Clickable interface {
	OnClick(button int)
	OnDoubleClick(ctx context.Context, x, y int) error
	OnKeys(mods ...string)
	OnMove(p *Point)
	Fail() error
	Explode()
}

type ctxKey struct{}

type clickHandler struct {
	clicks  []int
	calls   int
	mods    []string
	moves   []*Point
	ctxSeen any
	failErr error
}

func (h *clickHandler) OnClick(button int) {
	h.calls++
	h.clicks = append(h.clicks, button)
}

func (h *clickHandler) OnDoubleClick(ctx context.Context, x, y int) error {
	h.calls++
	h.ctxSeen = ctx.Value(ctxKey{})
	h.clicks = append(h.clicks, x, y)
	return nil
}

func (h *clickHandler) OnKeys(mods ...string) {
	h.calls++
	h.mods = mods
}

func (h *clickHandler) OnMove(p *Point) {
	h.calls++
	h.moves = append(h.moves, p)
}

func (h *clickHandler) Fail() error {
	h.calls++
	return h.failErr
}

func (h *clickHandler) Explode() {
	h.calls++
	panic("kaboom")
}

func newClickManager(t *testing.T) (*Manager, *clickHandler) {
	t.Helper()
	h := &clickHandler{}
	m, err := NewManager[Clickable](h)
	require.NoError(t, err)
	return m, h
}

func TestApplyInvocationCallsMethodOnce(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnClick", 42))
	r.NoError(err)
	r.Equal(1, h.calls)
	r.Equal([]int{42}, h.clicks)
}

func TestApplyInvocationPassesArgumentsInOrder(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	err := m.ApplyInvocation(ctx, invocation.MustNew("T1", "Clickable", "OnDoubleClick", 3, 7))
	r.NoError(err)
	r.Equal([]int{3, 7}, h.clicks)
	r.Equal("req-1", h.ctxSeen)
}

func TestApplyInvocationUnknownMethod(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnHover"))
	r.Error(err)

	var invErr *InvocationError
	r.True(errors.As(err, &invErr))
	r.Equal("Clickable", invErr.Interface)
	r.Equal("OnHover", invErr.Method)

	var resErr *MethodResolutionError
	r.True(errors.As(err, &resErr))
	r.Equal(0, h.calls)
}

func TestApplyInvocationWrongArgumentCount(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnClick", 1, 2))

	var argErr *ArgumentMismatchError
	r.True(errors.As(err, &argErr))
	r.Equal(-1, argErr.Index)
	r.Equal([2]int{1, 2}, argErr.Count)
	r.Equal(0, h.calls)
}

func TestApplyInvocationWrongArgumentKind(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	// No coercion: an int64 is not an int.
	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnClick", int64(42)))

	var argErr *ArgumentMismatchError
	r.True(errors.As(err, &argErr))
	r.Equal(0, argErr.Index)
	r.Equal(reflect.TypeOf(0), argErr.Want)
	r.Equal(reflect.TypeOf(int64(0)), argErr.Got)
	r.Equal(0, h.calls)
}

func TestApplyInvocationNilArguments(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	r.NoError(m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnMove", nil)))
	r.Len(h.moves, 1)
	r.Nil(h.moves[0])

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "OnClick", nil))
	var argErr *ArgumentMismatchError
	r.True(errors.As(err, &argErr))
	r.Nil(argErr.Got)
	r.Equal(1, h.calls)
}

func TestApplyInvocationVariadic(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)

	err := m.ApplyInvocation(context.Background(),
		invocation.MustNew("T1", "Clickable", "OnKeys", []string{"ctrl", "shift"}))
	r.NoError(err)
	r.Equal([]string{"ctrl", "shift"}, h.mods)
}

func TestApplyInvocationWrapsHandlerError(t *testing.T) {
	r := require.New(t)
	m, h := newClickManager(t)
	errBoom := errors.New("boom")
	h.failErr = errBoom

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "Fail"))
	r.ErrorIs(err, errBoom)

	var invErr *InvocationError
	r.True(errors.As(err, &invErr))
	r.Equal("Fail", invErr.Method)
	r.Equal("Clickable", invErr.Interface)
	r.Same(errBoom, invErr.Err)
	r.Equal(1, h.calls)
}

func TestApplyInvocationRecoversPanic(t *testing.T) {
	r := require.New(t)
	m, _ := newClickManager(t)

	err := m.ApplyInvocation(context.Background(), invocation.MustNew("T1", "Clickable", "Explode"))

	var panicErr *HandlerPanicError
	r.True(errors.As(err, &panicErr))
	r.Equal("kaboom", panicErr.Value)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager[*clickHandler](&clickHandler{})
	if !errors.Is(err, ErrNotInterface) {
		t.Fatalf("expect ErrNotInterface, got %v", err)
	}

	_, err = NewManager[Clickable](nil)
	if !errors.Is(err, ErrNilImplementation) {
		t.Fatalf("expect ErrNilImplementation, got %v", err)
	}

	var typedNil *clickHandler
	_, err = NewManager[Clickable](typedNil)
	if !errors.Is(err, ErrNilImplementation) {
		t.Fatalf("expect ErrNilImplementation for typed nil, got %v", err)
	}

	_, err = NewManager[interface{ OnClick(int) }](&clickHandler{})
	if !errors.Is(err, ErrUnnamedInterface) {
		t.Fatalf("expect ErrUnnamedInterface, got %v", err)
	}
	m, err := NewNamedManager[interface{ OnClick(int) }]("ClickOnly", &clickHandler{})
	if err != nil {
		t.Fatalf("named anonymous interface: %v", err)
	}
	if m.Interface() != "ClickOnly" {
		t.Fatalf("expect ClickOnly, got %q", m.Interface())
	}
}

func TestManagerAccessors(t *testing.T) {
	r := require.New(t)
	h := &clickHandler{}

	m, err := NewNamedManager[Clickable]("com.example.ClickRpc", h)
	r.NoError(err)

	r.Equal("com.example.ClickRpc", m.Interface())
	r.Equal(reflect.TypeFor[Clickable](), m.InterfaceType())
	r.Same(h, m.Implementation())
	r.Equal([]string{"Explode", "Fail", "OnClick", "OnDoubleClick", "OnKeys", "OnMove"}, m.Methods())

	sig, ok := m.Signature("OnDoubleClick")
	r.True(ok)
	r.Equal([]reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}, sig)

	_, ok = m.Signature("OnHover")
	r.False(ok)
}
