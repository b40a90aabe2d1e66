package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownHooks_Add(t *testing.T) {
	t.Run("adds hook", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		called := false

		hooks.Add("test", func(ctx context.Context) error {
			called = true
			return nil
		})

		require.Len(t, hooks.hooks, 1)
		assert.Equal(t, "test", hooks.hooks[0].name)

		require.NoError(t, hooks.Execute(context.Background()))
		assert.True(t, called, "hook should have been called")
	})

	t.Run("ignores nil hook", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		hooks.Add("nil-hook", nil)
		assert.Empty(t, hooks.hooks)
	})
}

func TestShutdownHooks_AddCloser(t *testing.T) {
	t.Run("closes closer", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		closer := &mockCloser{}

		hooks.AddCloser("cache", closer)

		require.NoError(t, hooks.Execute(context.Background()))
		assert.True(t, closer.closed)
	})

	t.Run("propagates close errors", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		closeErr := errors.New("connection already closed")

		hooks.AddCloser("cache", &mockCloser{err: closeErr})

		assert.ErrorIs(t, hooks.Execute(context.Background()), closeErr)
	})

	t.Run("ignores nil closer", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		hooks.AddCloser("nil-closer", nil)
		assert.Empty(t, hooks.hooks)
	})
}

func TestShutdownHooks_Execute(t *testing.T) {
	t.Run("executes hooks in reverse order", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		var order []string

		for _, name := range []string{"telemetry", "cache", "adapter"} {
			hooks.Add(name, func(ctx context.Context) error {
				order = append(order, name)
				return nil
			})
		}

		require.NoError(t, hooks.Execute(context.Background()))

		assert.Equal(t, []string{"adapter", "cache", "telemetry"}, order)
	})

	t.Run("continues execution when hooks fail", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		var executed []string
		first := errors.New("first error")
		second := errors.New("second error")

		hooks.Add("error1", func(ctx context.Context) error {
			executed = append(executed, "error1")
			return first
		})
		hooks.Add("success", func(ctx context.Context) error {
			executed = append(executed, "success")
			return nil
		})
		hooks.Add("error2", func(ctx context.Context) error {
			executed = append(executed, "error2")
			return second
		})

		err := hooks.Execute(context.Background())

		assert.Equal(t, []string{"error2", "success", "error1"}, executed)
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
	})

	t.Run("passes context to hooks", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		type ctxKey struct{}

		var received any
		hooks.Add("ctx-check", func(ctx context.Context) error {
			received = ctx.Value(ctxKey{})
			return nil
		})

		ctx := context.WithValue(context.Background(), ctxKey{}, "test-value")
		require.NoError(t, hooks.Execute(ctx))

		assert.Equal(t, "test-value", received)
	})

	t.Run("handles empty hooks list", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		assert.NoError(t, hooks.Execute(context.Background()))
	})
}

type mockCloser struct {
	closed bool
	err    error
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}
