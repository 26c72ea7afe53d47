package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopHandle struct {
	name string
}

func (h *noopHandle) SubmitAsync(ctx context.Context, action Action, identifier string) error {
	return nil
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("search.tasks.UpdateIndex", func() Handle { return &noopHandle{name: "update"} })
	r.Register("os.Getenv", func() Handle { return &noopHandle{name: "getenv"} })
	return r
}

func TestResolve(t *testing.T) {
	r := newTestRegistry()

	handle, err := r.Resolve("search.tasks.UpdateIndex")
	require.NoError(t, err)
	assert.Equal(t, "update", handle.(*noopHandle).name)
}

func TestResolveUnknownModule(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Resolve("bad.module.Path")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModuleNotFound))
	assert.False(t, errors.Is(err, ErrAttributeNotFound))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KindModuleNotFound, cfgErr.Kind)
	assert.Equal(t, "bad.module", cfgErr.Module)
	assert.Equal(t, "Path", cfgErr.Attr)
}

func TestResolveUnknownAttribute(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Resolve("os.NoSuchAttr")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAttributeNotFound))
	assert.False(t, errors.Is(err, ErrModuleNotFound))
	assert.Contains(t, err.Error(), `"NoSuchAttr"`)
}

func TestResolveInvalidPath(t *testing.T) {
	r := newTestRegistry()

	for _, path := range []string{"", "noDots", ".Leading", "trailing."} {
		_, err := r.Resolve(path)
		assert.True(t, errors.Is(err, ErrInvalidPath), path)
	}
}

func TestResolveReturnsFreshHandle(t *testing.T) {
	r := newTestRegistry()

	a, err := r.Resolve("os.Getenv")
	require.NoError(t, err)
	b, err := r.Resolve("os.Getenv")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegisterPanics(t *testing.T) {
	r := newTestRegistry()

	assert.Panics(t, func() {
		r.Register("os.Getenv", func() Handle { return &noopHandle{} })
	})
	assert.Panics(t, func() {
		r.Register("nodot", func() Handle { return &noopHandle{} })
	})
	assert.Panics(t, func() {
		r.Register("os.Nil", nil)
	})
}

func TestPaths(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, []string{"os.Getenv", "search.tasks.UpdateIndex"}, r.Paths())
}

func TestHandleFunc(t *testing.T) {
	var got Request
	h := HandleFunc(func(ctx context.Context, action Action, identifier string) error {
		got = Request{Action: action, Identifier: identifier}
		return nil
	})

	require.NoError(t, h.SubmitAsync(context.Background(), ActionDelete, "curator.person.1"))
	assert.Equal(t, Request{Action: ActionDelete, Identifier: "curator.person.1"}, got)
}
