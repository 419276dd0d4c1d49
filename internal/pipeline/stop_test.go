package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopSignalLatches(t *testing.T) {
	s := NewStopSignal()
	assert.False(t, s.IsSet())

	s.Set()
	assert.True(t, s.IsSet())

	// Repeated sets keep the latch
	s.Set()
	assert.True(t, s.IsSet())

	s.Reset()
	assert.False(t, s.IsSet())
}

func TestStopSignalConcurrentSet(t *testing.T) {
	s := NewStopSignal()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
		}()
	}
	wg.Wait()

	assert.True(t, s.IsSet())
}
