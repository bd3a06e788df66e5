// FILE: src/internal/core/const.go
package core

// Size ceilings enforced by the filter and batcher. Records are never
// rejected for size, only truncated or split into separate payloads.
const (
	MaxMessageSize         = 64 * 1024         // per log message
	MaxAttributeValueSize  = 4 * 1024          // per attribute value
	MaxAttributesPerRecord = 50                // attributes kept per record
	MaxPayloadSize         = 5 * 1024 * 1024   // per HTTP batch
	MaxSpilloverSize       = 100 * 1024 * 1024 // total on-disk spillover
)

// EvictionQuantum is the number of oldest records moved to disk in one
// block when the memory buffer overflows.
const EvictionQuantum = 1000

const (
	RedactionSentinel = "***REDACTED***"
	TruncationMarker  = "...[TRUNCATED]"
)

// TimestampLayout is the wire format for record timestamps (UTC, second
// precision).
const TimestampLayout = "2006-01-02T15:04:05Z"

// IngestPath is appended to the configured API base URL.
const IngestPath = "/api/ingestion/ingest"
