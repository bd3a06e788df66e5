// FILE: src/internal/exporter/exporter.go
package exporter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"teralog/src/internal/buffer"
	"teralog/src/internal/config"
	"teralog/src/internal/core"
	"teralog/src/internal/deliver"
	"teralog/src/internal/enrich"
	"teralog/src/internal/redact"
	"teralog/src/internal/spill"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// shutdownGracePeriod bounds how long Shutdown waits for the flush loop
// and the final drain before returning regardless.
const shutdownGracePeriod = 5 * time.Second

// LogItem is the producer-facing view of one incoming log record, as
// handed over by the host telemetry framework.
type LogItem interface {
	Body() string
	SeverityText() string
	Attributes() map[string]any
}

// Result is the outcome reported back to the host framework. Telemetry
// shipping must never crash the host, so Export always reports success.
type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
)

// SkipReason records why a single item was dropped during export.
type SkipReason struct {
	Index  int
	Reason string
}

// BatchReport aggregates per-item outcomes of one Export call.
type BatchReport struct {
	Accepted int
	Skipped  []SkipReason
}

// Exporter is the log-shipping pipeline: it sanitizes and enriches
// incoming records, buffers them, and ships them to the ingestion API
// in the background with disk spillover under backpressure and outage.
type Exporter struct {
	cfg        *config.Config
	instanceID string
	logger     *log.Logger

	redactor  *redact.Redactor
	enricher  *enrich.Enricher
	buf       *buffer.Buffer
	spillover *spill.Store
	engine    *deliver.Engine

	// Serializes whole flush cycles so spillover recovery always lands
	// ahead of newer in-memory records.
	flushMu sync.Mutex

	done         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shuttingDown atomic.Bool
}

// New wires the pipeline and starts the background flush loop. When
// logger is nil one is constructed from the config's logging section.
// Startup key validation fails loud on an explicit 401/403 rejection
// but not on an unreachable endpoint.
func New(cfg *config.Config, logger *log.Logger) (*Exporter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		var err error
		logger, err = newLogger(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	instanceID := uuid.NewString()

	ex := &Exporter{
		cfg:        cfg,
		instanceID: instanceID,
		logger:     logger,
		redactor:   redact.New(logger),
		enricher:   enrich.New(logger),
		done:       make(chan struct{}),
	}

	ex.spillover = spill.New(cfg.SpilloverDir, instanceID[:8], logger)
	ex.buf = buffer.New(int(cfg.MaxBufferSize), core.EvictionQuantum, ex.spillover.Append, logger)
	ex.engine = deliver.New(cfg, ex.spillover, instanceID, logger)

	if cfg.ValidateAPIKey {
		if err := ex.engine.ValidateKey(); err != nil {
			return nil, err
		}
	}

	ex.wg.Add(1)
	go ex.flushLoop()

	logger.Info("msg", "Exporter started",
		"component", "exporter",
		"endpoint", ex.engine.Endpoint(),
		"flush_interval_s", cfg.FlushIntervalSeconds,
		"max_buffer", cfg.MaxBufferSize,
		"instance_id", instanceID)

	return ex, nil
}

// Export processes a batch of incoming items synchronously: normalize,
// redact, enrich, filter attributes, enqueue. Faults are contained per
// item; a malformed record is logged and skipped, never aborting the
// batch, and nothing propagates back into the host's call path.
func (ex *Exporter) Export(items []LogItem) Result {
	ex.ExportBatch(items)
	return ResultSuccess
}

// ExportBatch is Export with an observable per-item report.
func (ex *Exporter) ExportBatch(items []LogItem) BatchReport {
	var report BatchReport
	if len(items) == 0 {
		return report
	}

	now := time.Now().UTC().Format(core.TimestampLayout)

	for i, item := range items {
		if err := ex.process(item, now); err != nil {
			report.Skipped = append(report.Skipped, SkipReason{Index: i, Reason: err.Error()})
			ex.logger.Error("msg", "Error processing log record",
				"component", "exporter",
				"index", i,
				"error", err)
			continue
		}
		report.Accepted++
	}

	return report
}

// process builds, sanitizes and enqueues a single record. A panic from
// a hostile item implementation is converted to a skip.
func (ex *Exporter) process(item LogItem, now string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing record: %v", r)
		}
	}()

	if item == nil {
		return fmt.Errorf("nil log item")
	}

	attrs := item.Attributes()

	// A caller-supplied timestamp attribute wins over the arrival time
	// and is lifted out of the attribute set, so it neither reaches the
	// attribute filter nor consumes one of its slots. Non-string values
	// are stringified rather than ignored.
	timestamp := now
	if v, ok := attrs["timestamp"]; ok && v != nil {
		if s, isString := v.(string); isString {
			if s != "" {
				timestamp = s
			}
		} else {
			timestamp = fmt.Sprintf("%v", v)
		}
		lifted := make(map[string]any, len(attrs)-1)
		for k, av := range attrs {
			if k != "timestamp" {
				lifted[k] = av
			}
		}
		attrs = lifted
	}

	record := core.Record{
		"timestamp": timestamp,
		"message":   item.Body(),
		"severity":  item.SeverityText(),
	}
	record = ex.redactor.Normalize(record)

	filtered, _ := ex.redactor.Attributes(attrs)
	for k, v := range filtered {
		switch k {
		case "timestamp", "message", "severity":
			// Required fields are set above; attributes cannot
			// overwrite them past the filter.
			continue
		}
		record[k] = v
	}

	// Enrichment last: static process metadata overwrites any
	// caller-supplied values under the same keys.
	ex.enricher.Apply(record)

	ex.buf.Enqueue(record)
	return nil
}

// ForceFlush synchronously flushes everything currently buffered,
// bounded by the given timeout. Returns false when the deadline passed
// before delivery finished; undelivered chunks end up in spillover.
func (ex *Exporter) ForceFlush(timeoutMillis int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMillis)*time.Millisecond)
	defer cancel()

	ex.flush(ctx)
	return ctx.Err() == nil
}

// Shutdown stops the flush loop and performs one final synchronous
// drain-and-send. Safe to call more than once; subsequent calls are
// no-ops.
func (ex *Exporter) Shutdown() {
	ex.shutdownOnce.Do(func() {
		ex.shuttingDown.Store(true)
		close(ex.done)

		if !waitTimeout(&ex.wg, shutdownGracePeriod) {
			ex.logger.Warn("msg", "Flush loop did not stop within grace period",
				"component", "exporter")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		ex.flush(ctx)

		ex.logger.Info("msg", "Exporter shutdown complete",
			"component", "exporter",
			"buffer", ex.buf.GetStats(),
			"delivery", ex.engine.GetStats(),
			"spillover", ex.spillover.GetStats())
	})
}

// flushLoop periodically triggers a flush until shutdown.
func (ex *Exporter) flushLoop() {
	defer ex.wg.Done()

	ticker := time.NewTicker(time.Duration(ex.cfg.FlushIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !ex.shuttingDown.Load() {
				ex.flush(context.Background())
			}
		case <-ex.done:
			return
		}
	}
}

// flush recovers spillover first and merges it ahead of the drained
// buffer, preserving approximate temporal order across an outage or
// restart, then hands everything to the delivery engine.
func (ex *Exporter) flush(ctx context.Context) {
	ex.flushMu.Lock()
	defer ex.flushMu.Unlock()

	diskLogs := ex.spillover.DrainAll()
	memLogs := ex.buf.DrainAll()

	if len(diskLogs) == 0 && len(memLogs) == 0 {
		return
	}

	logs := make([]core.Record, 0, len(diskLogs)+len(memLogs))
	logs = append(logs, diskLogs...)
	logs = append(logs, memLogs...)

	ex.logger.Debug("msg", "Flushing records",
		"component", "exporter",
		"count", len(logs),
		"recovered", len(diskLogs))

	ex.engine.Send(ctx, logs)
}

// InstanceID returns the unique identifier of this exporter instance.
func (ex *Exporter) InstanceID() string {
	return ex.instanceID
}

// GetStats aggregates statistics from all pipeline stages.
func (ex *Exporter) GetStats() map[string]any {
	return map[string]any{
		"instance_id": ex.instanceID,
		"buffer":      ex.buf.GetStats(),
		"spillover":   ex.spillover.GetStats(),
		"delivery":    ex.engine.GetStats(),
		"redaction":   ex.redactor.GetStats(),
	}
}

// waitTimeout waits for the WaitGroup, giving up after d. Returns true
// when the wait completed.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}
