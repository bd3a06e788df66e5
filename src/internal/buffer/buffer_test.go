// FILE: src/internal/buffer/buffer_test.go
package buffer

import (
	"fmt"
	"sync"
	"testing"

	"teralog/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func record(n int) core.Record {
	return core.Record{"message": fmt.Sprintf("msg-%d", n)}
}

func TestBuffer_EnqueueAndDrain(t *testing.T) {
	b := New(10, 2, nil, newTestLogger())

	b.Enqueue(record(1))
	b.Enqueue(record(2))
	b.Enqueue(record(3))

	drained := b.DrainAll()
	require.Len(t, drained, 3)
	assert.Equal(t, "msg-1", drained[0]["message"])
	assert.Equal(t, "msg-3", drained[2]["message"])
	assert.Zero(t, b.Len())
}

func TestBuffer_DrainEmptyIsIdempotent(t *testing.T) {
	b := New(10, 2, nil, newTestLogger())

	assert.Nil(t, b.DrainAll())
	assert.Nil(t, b.DrainAll())
	assert.Zero(t, b.Len())
}

func TestBuffer_OverflowSpillsOldestQuantum(t *testing.T) {
	var spilled []core.Record
	spill := func(records []core.Record) {
		spilled = append(spilled, records...)
	}

	capacity, quantum := 10, 3
	b := New(capacity, quantum, spill, newTestLogger())

	// Fill to capacity, then one more to trigger eviction
	for i := 0; i < capacity+1; i++ {
		b.Enqueue(record(i))
	}

	require.Len(t, spilled, quantum)
	for i := 0; i < quantum; i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), spilled[i]["message"])
	}

	// Buffer retains the newest records, oldest gone
	remaining := b.DrainAll()
	require.Len(t, remaining, capacity+1-quantum)
	assert.Equal(t, fmt.Sprintf("msg-%d", quantum), remaining[0]["message"])
	assert.Equal(t, fmt.Sprintf("msg-%d", capacity), remaining[len(remaining)-1]["message"])
}

func TestBuffer_CapacityInvariant(t *testing.T) {
	var spilledCount int
	spill := func(records []core.Record) {
		spilledCount += len(records)
	}

	capacity := 10
	b := New(capacity, 4, spill, newTestLogger())

	total := 57
	for i := 0; i < total; i++ {
		b.Enqueue(record(i))
		assert.LessOrEqual(t, b.Len(), capacity)
	}

	// Every enqueued record is either still buffered or was spilled
	assert.Equal(t, total, b.Len()+spilledCount)
}

func TestBuffer_QuantumLargerThanCapacityClamps(t *testing.T) {
	b := New(5, 100, nil, newTestLogger())
	for i := 0; i < 12; i++ {
		b.Enqueue(record(i))
	}
	assert.LessOrEqual(t, b.Len(), 5)
}

func TestBuffer_ConcurrentProducers(t *testing.T) {
	var mu sync.Mutex
	spilledCount := 0
	spill := func(records []core.Record) {
		mu.Lock()
		spilledCount += len(records)
		mu.Unlock()
	}

	capacity := 100
	b := New(capacity, 10, spill, newTestLogger())

	var wg sync.WaitGroup
	producers, perProducer := 8, 200
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Enqueue(record(p*perProducer + i))
			}
		}(p)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, producers*perProducer, b.Len()+spilledCount)
	assert.LessOrEqual(t, b.Len(), capacity)
}
