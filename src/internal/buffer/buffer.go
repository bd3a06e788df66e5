// FILE: src/internal/buffer/buffer.go
package buffer

import (
	"sync"
	"sync/atomic"

	"teralog/src/internal/core"

	"github.com/lixenwraith/log"
)

// SpillFunc receives the evicted oldest block when the buffer overflows.
type SpillFunc func(records []core.Record)

// Buffer is the bounded in-memory queue between the producer and the
// background sender. The mutex is held only for the duration of an
// append or an atomic drain, never across I/O.
type Buffer struct {
	mu       sync.Mutex
	records  []core.Record
	capacity int
	quantum  int
	spill    SpillFunc
	logger   *log.Logger

	// Statistics
	totalEnqueued atomic.Uint64
	totalSpilled  atomic.Uint64
}

// New creates a buffer that holds at most capacity records. On
// overflow the oldest quantum records are handed to spill as one block.
func New(capacity, quantum int, spill SpillFunc, logger *log.Logger) *Buffer {
	if quantum <= 0 || quantum > capacity {
		quantum = capacity
	}
	return &Buffer{
		records:  make([]core.Record, 0, capacity),
		capacity: capacity,
		quantum:  quantum,
		spill:    spill,
		logger:   logger,
	}
}

// Enqueue appends a record. If the buffer is at capacity, the oldest
// eviction quantum is moved out through the spill callback first, so no
// record is ever dropped here. The eviction and append happen under one
// lock acquisition so concurrent producers cannot interleave between
// them.
func (b *Buffer) Enqueue(record core.Record) {
	b.totalEnqueued.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) >= b.capacity {
		n := b.quantum
		if n > len(b.records) {
			n = len(b.records)
		}
		overflow := make([]core.Record, n)
		copy(overflow, b.records[:n])
		b.records = append(b.records[:0], b.records[n:]...)

		b.totalSpilled.Add(uint64(n))
		b.logger.Warn("msg", "Buffer full, spilling oldest records to disk",
			"component", "buffer",
			"spilled", n,
			"capacity", b.capacity)
		if b.spill != nil {
			b.spill(overflow)
		}
	}
	b.records = append(b.records, record)
}

// DrainAll atomically swaps out the contents and returns them in
// enqueue order. Draining an empty buffer returns nil.
func (b *Buffer) DrainAll() []core.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}
	drained := b.records
	b.records = make([]core.Record, 0, b.capacity)
	return drained
}

// Len returns the current number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// GetStats returns buffer statistics
func (b *Buffer) GetStats() map[string]any {
	return map[string]any{
		"capacity":       b.capacity,
		"length":         b.Len(),
		"total_enqueued": b.totalEnqueued.Load(),
		"total_spilled":  b.totalSpilled.Load(),
	}
}
