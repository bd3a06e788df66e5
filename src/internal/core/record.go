// FILE: src/internal/core/record.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a single log record flowing through the pipeline. Required
// keys are "timestamp", "message" and "severity"; enrichment fields and
// caller attributes are flattened into the same map.
type Record map[string]any

// Severity levels accepted on the wire. Anything else normalizes to INFO.
var validSeverities = map[string]struct{}{
	"TRACE":    {},
	"DEBUG":    {},
	"INFO":     {},
	"WARN":     {},
	"WARNING":  {},
	"ERROR":    {},
	"FATAL":    {},
	"CRITICAL": {},
}

// NormalizeSeverity upper-cases and trims a severity label, falling back
// to INFO for anything outside the accepted set.
func NormalizeSeverity(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if _, ok := validSeverities[s]; !ok {
		return "INFO"
	}
	return s
}

// Marshal serializes the record as one JSON object. Values that the
// encoder cannot handle are replaced by their fmt representation, so a
// hostile attribute never poisons a whole batch.
func (r Record) Marshal() ([]byte, error) {
	b, err := json.Marshal(map[string]any(r))
	if err == nil {
		return b, nil
	}

	safe := make(map[string]any, len(r))
	for k, v := range r {
		if _, e := json.Marshal(v); e != nil {
			safe[k] = fmt.Sprintf("%v", v)
			continue
		}
		safe[k] = v
	}
	return json.Marshal(safe)
}

// EstimateSize returns the serialized size of the record in bytes, used
// by the batcher for payload chunking.
func (r Record) EstimateSize() int {
	b, err := r.Marshal()
	if err != nil {
		return 0
	}
	return len(b)
}
