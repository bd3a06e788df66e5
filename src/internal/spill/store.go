// FILE: src/internal/spill/store.go
package spill

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"teralog/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/valyala/fastjson"
)

// Store is the append-only on-disk fallback for records that cannot be
// held in memory or delivered. One JSONL file per exporter instance;
// recovery reads the whole file and deletes it as a single unit.
type Store struct {
	path    string
	maxSize int64
	mu      sync.Mutex
	logger  *log.Logger

	// Statistics
	totalAppended  atomic.Uint64
	totalDropped   atomic.Uint64
	totalRecovered atomic.Uint64
}

// New creates a spillover store rooted in dir (system temp dir when
// empty). The filename carries the pid and an instance suffix so a
// restarted process neither collides with a still-running sibling nor
// adopts its orphaned file.
func New(dir, instanceID string, logger *log.Logger) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("teralog_spillover_%d_%s.jsonl", os.Getpid(), instanceID)
	return &Store{
		path:    filepath.Join(dir, name),
		maxSize: core.MaxSpilloverSize,
		logger:  logger,
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Append serializes each record as one JSON line. If the file is
// already at the size ceiling the whole batch is dropped with a
// diagnostic; a partial batch is never written on the ceiling check.
func (s *Store) Append(records []core.Record) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var currentSize int64
	if info, err := os.Stat(s.path); err == nil {
		currentSize = info.Size()
	}

	if currentSize >= s.maxSize {
		s.totalDropped.Add(uint64(len(records)))
		s.logger.Warn("msg", "Spillover limit reached, dropping records",
			"component", "spillover",
			"limit_bytes", s.maxSize,
			"dropped", len(records))
		return
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		s.totalDropped.Add(uint64(len(records)))
		s.logger.Error("msg", "Spillover write failed",
			"component", "spillover",
			"path", s.path,
			"error", err)
		return
	}
	defer f.Close()

	written := 0
	for _, record := range records {
		line, err := record.Marshal()
		if err != nil {
			s.logger.Error("msg", "Skipping unserializable record",
				"component", "spillover",
				"error", err)
			continue
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			s.logger.Error("msg", "Spillover write failed",
				"component", "spillover",
				"path", s.path,
				"error", err)
			break
		}
		written++
	}

	s.totalAppended.Add(uint64(written))
	s.logger.Debug("msg", "Wrote records to spillover",
		"component", "spillover",
		"count", written,
		"path", s.path)
}

// DrainAll reads every line, best-effort-parses each, deletes the file
// and returns the recovered records oldest first. Absent or empty file
// returns nil. There is no partial consumption; the file is one
// recovery unit.
func (s *Store) DrainAll() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("msg", "Spillover read failed",
				"component", "spillover",
				"path", s.path,
				"error", err)
		}
		return nil
	}
	if len(data) == 0 {
		_ = os.Remove(s.path)
		return nil
	}

	var records []core.Record
	var parser fastjson.Parser

	start := 0
	for i := 0; i <= len(data); i++ {
		if i != len(data) && data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}

		v, err := parser.ParseBytes(line)
		if err != nil || v.Type() != fastjson.TypeObject {
			// Malformed line, likely a torn write. Skip, not fatal.
			continue
		}
		records = append(records, objectToRecord(v))
	}

	if err := os.Remove(s.path); err != nil {
		s.logger.Error("msg", "Could not remove spillover file",
			"component", "spillover",
			"path", s.path,
			"error", err)
	}

	s.totalRecovered.Add(uint64(len(records)))
	if len(records) > 0 {
		s.logger.Info("msg", "Recovered records from spillover",
			"component", "spillover",
			"count", len(records))
	}
	return records
}

// GetStats returns spillover statistics
func (s *Store) GetStats() map[string]any {
	return map[string]any{
		"path":            s.path,
		"limit_bytes":     s.maxSize,
		"total_appended":  s.totalAppended.Load(),
		"total_dropped":   s.totalDropped.Load(),
		"total_recovered": s.totalRecovered.Load(),
	}
}

func objectToRecord(v *fastjson.Value) core.Record {
	record := make(core.Record)
	obj, err := v.Object()
	if err != nil {
		return record
	}
	obj.Visit(func(key []byte, value *fastjson.Value) {
		record[string(key)] = valueToAny(value)
	})
	return record
}

func valueToAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, valueToAny(item))
		}
		return out
	case fastjson.TypeObject:
		return map[string]any(objectToRecord(v))
	default:
		return nil
	}
}
