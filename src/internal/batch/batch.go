// FILE: src/internal/batch/batch.go
package batch

import "teralog/src/internal/core"

// Split packs records into chunks whose estimated serialized size stays
// under maxPayload bytes. Packing is greedy and order-preserving: a new
// chunk starts before any record that would overflow the current one.
// A single record larger than the ceiling forms its own chunk; records
// are atomic and never split.
func Split(records []core.Record, maxPayload int) [][]core.Record {
	if len(records) == 0 {
		return nil
	}

	var chunks [][]core.Record
	var current []core.Record
	currentSize := 0

	for _, record := range records {
		size := record.EstimateSize()

		if currentSize+size > maxPayload && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentSize = 0
		}

		current = append(current, record)
		currentSize += size
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}
