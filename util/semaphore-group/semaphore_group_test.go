package semaphoregroup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreGroup_Limit(t *testing.T) {
	sg := NewSemaphoreGroup(2)

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sg.Run(context.Background(), func() {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxRunning.Load(), int32(2))

	// every slot was released
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sg.Add(ctx))
	require.NoError(t, sg.Add(ctx))
}

func TestSemaphoreGroup_AddHonoursContext(t *testing.T) {
	sg := NewSemaphoreGroup(0)
	require.NoError(t, sg.Add(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := sg.Run(ctx, func() { called = true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	sg.Done()
	require.NoError(t, sg.Run(context.Background(), func() { called = true }))
	assert.True(t, called)
}
