package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumberSource_UniqueUnderConcurrency(t *testing.T) {
	src := NewOrderNumberSource()

	const n = 500
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[int64]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			no := src.Next()
			mu.Lock()
			seen[no] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestOrderNumberSource_Positive(t *testing.T) {
	src := NewOrderNumberSource()
	for i := 0; i < 10; i++ {
		assert.Positive(t, src.Next())
	}
}
