// FILE: src/internal/enrich/enrich.go
package enrich

import (
	"os"
	"runtime"

	"teralog/src/internal/core"
	"teralog/src/internal/version"

	"github.com/lixenwraith/log"
)

// Enricher stamps every record with static process and host metadata.
// The values are computed once at construction, never per record.
type Enricher struct {
	fields core.Record
}

// New collects system information for auto-enrichment. Hostname lookup
// failure is not fatal; the field is set to "unknown".
func New(logger *log.Logger) *Enricher {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		logger.Warn("msg", "Could not determine hostname",
			"component", "enricher",
			"error", err)
	}

	return &Enricher{
		fields: core.Record{
			"hostname":     hostname,
			"process_id":   os.Getpid(),
			"runtime":      "Go " + runtime.Version(),
			"os":           runtime.GOOS,
			"arch":         runtime.GOARCH,
			"_sdk_version": version.Short(),
		},
	}
}

// Apply overwrites the enrichment keys on the record. Caller-supplied
// values under the same keys are intentionally not preserved.
func (e *Enricher) Apply(record core.Record) {
	for k, v := range e.fields {
		record[k] = v
	}
}

// Fields returns the computed metadata, for diagnostics.
func (e *Enricher) Fields() core.Record {
	out := make(core.Record, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}
