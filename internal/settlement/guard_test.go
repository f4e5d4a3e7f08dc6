package settlement

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestGuardLifecycle(t *testing.T) {
	t.Parallel()

	var guard Guard
	assert.True(t, guard.Acquire("h1"))
	assert.False(t, guard.Acquire("h1"))
	assert.True(t, guard.Acquire("h2"))

	guard.Release("h1")
	assert.True(t, guard.Acquire("h1"))

	guard.Done("h1")
	guard.Release("h1")
	assert.True(t, guard.IsDone("h1"))
	assert.False(t, guard.Acquire("h1"))
}

func TestGuardSingleWinnerUnderContention(t *testing.T) {
	t.Parallel()

	guard := NewGuard()
	var winners atomic.Int32
	var group errgroup.Group
	for range 64 {
		group.Go(func() error {
			if guard.Acquire("hand") {
				winners.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
