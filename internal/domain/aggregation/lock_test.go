package aggregation

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineLock_SerializesAndForgetsKeys(t *testing.T) {
	e := NewEngine(nil, nil)

	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := e.lock("sales:month:2024-03")
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Empty(t, e.locks)
}

func TestEngineLock_IndependentKeys(t *testing.T) {
	e := NewEngine(nil, nil)

	unlockA := e.lock("sales:day:2024-03-01")
	unlockB := e.lock("sales:day:2024-03-02")
	assert.Len(t, e.locks, 2)

	unlockA()
	unlockB()
	assert.Empty(t, e.locks)
}
