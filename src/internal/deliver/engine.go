// FILE: src/internal/deliver/engine.go
package deliver

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"teralog/src/internal/batch"
	"teralog/src/internal/config"
	"teralog/src/internal/core"
	"teralog/src/internal/spill"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// Engine sends record chunks to the ingestion endpoint with bounded
// retries and exponential backoff. Chunks that exhaust their retries
// are handed to the spillover store, never discarded; 4xx responses are
// terminal because retrying a rejected request cannot change the
// outcome.
type Engine struct {
	endpoint       string
	apiKey         string
	logType        string
	liveLogs       bool
	browserHeaders bool
	timeout        time.Duration
	maxRetries     int
	instanceID     string

	client    *fasthttp.Client
	limiter   *rate.Limiter
	spillover *spill.Store
	logger    *log.Logger

	// Serializes sends so a timer flush and a forced flush never
	// deliver overlapping chunks concurrently.
	sendMu sync.Mutex

	// Statistics
	totalChunks   atomic.Uint64
	failedChunks  atomic.Uint64
	totalRecords  atomic.Uint64
	totalAttempts atomic.Uint64
}

// New creates a delivery engine from configuration.
func New(cfg *config.Config, spillover *spill.Store, instanceID string, logger *log.Logger) *Engine {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	e := &Engine{
		endpoint:       cfg.APIURL + core.IngestPath,
		apiKey:         cfg.APIKey,
		logType:        cfg.LogType,
		liveLogs:       cfg.LiveLogs,
		browserHeaders: cfg.BrowserHeaders,
		timeout:        timeout,
		maxRetries:     int(cfg.MaxRetries),
		instanceID:     instanceID,
		spillover:      spillover,
		logger:         logger,
	}

	e.client = &fasthttp.Client{
		MaxConnsPerHost:               10,
		MaxIdleConnDuration:           10 * time.Second,
		ReadTimeout:                   timeout,
		WriteTimeout:                  timeout,
		DisableHeaderNamesNormalizing: true,
	}
	if strings.HasPrefix(cfg.APIURL, "https://") {
		e.client.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.RateLimitPerSec > 0 {
		burst := int(cfg.RateLimitPerSec)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}

	return e
}

// Endpoint returns the full ingestion URL.
func (e *Engine) Endpoint() string {
	return e.endpoint
}

// Send splits the records into payload-bounded chunks and delivers them
// in order. Delivery is serialized; the buffer keeps accepting records
// while a send is in flight.
func (e *Engine) Send(ctx context.Context, records []core.Record) {
	if len(records) == 0 {
		return
	}

	chunks := batch.Split(records, core.MaxPayloadSize)

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	for _, chunk := range chunks {
		e.sendChunk(ctx, chunk)
	}
}

// sendChunk delivers one chunk, retrying on 5xx and transport failures
// with doubling backoff. All-retries-exhausted routes the chunk to
// spillover.
func (e *Engine) sendChunk(ctx context.Context, chunk []core.Record) {
	e.totalChunks.Add(1)

	body := e.buildPayload(chunk)

	retryDelay := time.Second
	var lastErr error

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		// An expired context means shutdown or flush deadline; skip the
		// network entirely so a queue of chunks cannot overrun it.
		if ctx.Err() != nil {
			e.spillToDisk(chunk, ctx.Err())
			return
		}

		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				e.spillToDisk(chunk, ctx.Err())
				return
			}

			// Double with overflow/cap protection
			newDelay := retryDelay * 2
			if newDelay > e.timeout || newDelay < retryDelay {
				retryDelay = e.timeout
			} else {
				retryDelay = newDelay
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				e.spillToDisk(chunk, err)
				return
			}
		}

		e.totalAttempts.Add(1)
		statusCode, responseBody, err := e.post(body)

		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			e.logger.Warn("msg", "HTTP request failed",
				"component", "delivery",
				"attempt", attempt+1,
				"max_retries", e.maxRetries,
				"error", err)
			continue
		}

		if statusCode >= 200 && statusCode < 300 {
			e.totalRecords.Add(uint64(len(chunk)))
			e.logger.Debug("msg", "Chunk sent successfully",
				"component", "delivery",
				"chunk_size", len(chunk),
				"status_code", statusCode,
				"attempt", attempt+1)
			return
		}

		lastErr = fmt.Errorf("server returned status %d: %s", statusCode, responseBody)

		// 4xx is terminal; a malformed or unauthorized request cannot
		// succeed on retry.
		if statusCode >= 400 && statusCode < 500 {
			e.logger.Error("msg", "Chunk rejected by server",
				"component", "delivery",
				"status_code", statusCode,
				"response", string(responseBody),
				"chunk_size", len(chunk))
			e.failedChunks.Add(1)
			return
		}

		e.logger.Warn("msg", "Server returned error status",
			"component", "delivery",
			"attempt", attempt+1,
			"status_code", statusCode,
			"response", string(responseBody))
	}

	e.spillToDisk(chunk, lastErr)
}

// ValidateKey probes the endpoint with an empty batch. An explicit
// 401/403 is returned as an error so the caller can fail loud; a
// network failure only warns, because startup must not hang or abort on
// a transient partition.
func (e *Engine) ValidateKey() error {
	statusCode, _, err := e.post([]byte(`{"logs":[]}`))
	if err != nil {
		e.logger.Warn("msg", "Could not validate API key, starting anyway",
			"component", "delivery",
			"error", err)
		return nil
	}

	switch statusCode {
	case fasthttp.StatusUnauthorized:
		return fmt.Errorf("API key is invalid (HTTP 401): check your api_key and try again")
	case fasthttp.StatusForbidden:
		return fmt.Errorf("API key is forbidden (HTTP 403): your key may be disabled or expired")
	}

	e.logger.Debug("msg", "API key validated successfully",
		"component", "delivery")
	return nil
}

// post performs one request/response cycle. Request and response are
// acquired per call and released before returning so a retry loop never
// holds pooled objects across a backoff sleep.
func (e *Engine) post(body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(e.endpoint)
	e.setHeaders(req)
	req.SetBody(body)

	err := e.client.DoTimeout(req, resp, e.timeout)

	statusCode := resp.StatusCode()
	var responseBody []byte
	if len(resp.Body()) > 0 {
		responseBody = make([]byte, len(resp.Body()))
		copy(responseBody, resp.Body())
	}

	fasthttp.ReleaseRequest(req)
	fasthttp.ReleaseResponse(resp)

	return statusCode, responseBody, err
}

// buildPayload assembles {"logs":[...]} by joining per-record
// serializations, so one bad record cannot poison the whole chunk.
func (e *Engine) buildPayload(chunk []core.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"logs":[`)
	first := true
	for _, record := range chunk {
		line, err := record.Marshal()
		if err != nil {
			e.logger.Error("msg", "Skipping unserializable record",
				"component", "delivery",
				"error", err)
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.Write(line)
		first = false
	}
	buf.WriteByte(']')
	if e.liveLogs {
		buf.WriteString(`,"historical_data":true`)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func (e *Engine) spillToDisk(chunk []core.Record, lastErr error) {
	e.logger.Error("msg", "Failed to send chunk after all retries, spilling to disk",
		"component", "delivery",
		"chunk_size", len(chunk),
		"retries", e.maxRetries,
		"last_error", lastErr)
	e.failedChunks.Add(1)
	e.spillover.Append(chunk)
}

// GetStats returns delivery statistics
func (e *Engine) GetStats() map[string]any {
	return map[string]any{
		"endpoint":       e.endpoint,
		"total_chunks":   e.totalChunks.Load(),
		"failed_chunks":  e.failedChunks.Load(),
		"total_records":  e.totalRecords.Load(),
		"total_attempts": e.totalAttempts.Load(),
		"max_retries":    e.maxRetries,
	}
}
