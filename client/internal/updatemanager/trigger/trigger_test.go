package trigger

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInstaller struct {
	calls atomic.Int32
	err   error
}

func (c *countingInstaller) Install() error {
	c.calls.Add(1)
	return c.err
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	target := &countingInstaller{}

	id := r.Register(target)
	assert.Len(t, id, 36)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Trigger(id))
	assert.Equal(t, int32(1), target.calls.Load())

	assert.ErrorIs(t, r.Trigger("not-a-session"), ErrUnknownSession)
	assert.ErrorIs(t, r.Trigger("2b5f4b2c-6d8e-4bb1-9a57-0a4b1f9d1c11"), ErrUnknownSession)

	r.Unregister(id)
	assert.Zero(t, r.Len())
	assert.ErrorIs(t, r.Trigger(id), ErrUnknownSession)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := NewRegistry()
	busy := &countingInstaller{err: errors.New("busy")}
	idle := &countingInstaller{}

	busyID := r.Register(busy)
	idleID := r.Register(idle)
	assert.NotEqual(t, busyID, idleID)

	assert.EqualError(t, r.Trigger(busyID), "busy")
	require.NoError(t, r.Trigger(idleID))
	assert.Equal(t, int32(1), busy.calls.Load())
	assert.Equal(t, int32(1), idle.calls.Load())
}

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_TriggersRegisteredSession(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	target := &countingInstaller{}
	id := r.Register(target)

	runWatcher(t, NewWatcher(dir, r))

	require.Eventually(t, func() bool {
		// the watcher may not be subscribed yet, keep dropping the request until it is consumed
		if _, err := os.Stat(RequestPath(dir, id)); os.IsNotExist(err) && target.calls.Load() == 0 {
			require.NoError(t, Request(dir, id))
		}
		return target.calls.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(RequestPath(dir, id))
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_HandlesPendingRequests(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	target := &countingInstaller{}
	id := r.Register(target)

	require.NoError(t, Request(dir, id))
	require.NoError(t, Request(dir, "unknown"))

	runWatcher(t, NewWatcher(dir, r))

	assert.Eventually(t, func() bool {
		return target.calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(RequestPath(dir, "unknown"))
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}
