// FILE: src/internal/deliver/engine_test.go
package deliver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"teralog/src/internal/config"
	"teralog/src/internal/core"
	"teralog/src/internal/spill"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestEngine(t *testing.T, serverURL string) (*Engine, *spill.Store) {
	t.Helper()

	cfg := &config.Config{
		APIURL:               serverURL,
		APIKey:               "test-key",
		LogType:              "otel",
		TimeoutSeconds:       5,
		FlushIntervalSeconds: 30,
		MaxBufferSize:        100,
		MaxRetries:           3,
	}
	require.NoError(t, cfg.Validate())

	logger := newTestLogger()
	store := spill.New(t.TempDir(), "deliver01", logger)
	return New(cfg, store, "instance-1", logger), store
}

type capturedRequest struct {
	header http.Header
	body   []byte
}

func TestEngine_SendSuccess(t *testing.T) {
	var attempts atomic.Int64
	var captured capturedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		captured.header = r.Header.Clone()
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	e, store := newTestEngine(t, server.URL)
	e.Send(context.Background(), []core.Record{
		{"message": "one", "severity": "INFO"},
		{"message": "two", "severity": "INFO"},
	})

	assert.EqualValues(t, 1, attempts.Load())
	assert.Nil(t, store.DrainAll(), "success must not write spillover")

	// Headers
	assert.Equal(t, "Bearer test-key", captured.header.Get("Authorization"))
	assert.Equal(t, "otel", captured.header.Get("X-Log-Type"))
	assert.Equal(t, "instance-1", captured.header.Get("X-Instance-ID"))
	assert.NotEmpty(t, captured.header.Get("X-SDK-Version"))
	assert.Contains(t, captured.header.Get("User-Agent"), "teralog-go/")

	// Body shape
	var payload struct {
		Logs []map[string]any `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(captured.body, &payload))
	require.Len(t, payload.Logs, 2)
	assert.Equal(t, "one", payload.Logs[0]["message"])
}

func TestEngine_RetryThenSuccess(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e, store := newTestEngine(t, server.URL)
	e.Send(context.Background(), []core.Record{{"message": "persistent"}})

	assert.EqualValues(t, 3, attempts.Load())
	assert.Nil(t, store.DrainAll(), "eventual success must not spill")
}

func TestEngine_RetriesExhaustedSpillToDisk(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e, store := newTestEngine(t, server.URL)
	e.Send(context.Background(), []core.Record{{"message": "doomed"}})

	assert.EqualValues(t, 3, attempts.Load(), "max_retries bounds total attempts")

	recovered := store.DrainAll()
	require.Len(t, recovered, 1)
	assert.Equal(t, "doomed", recovered[0]["message"])
}

func TestEngine_ClientErrorIsTerminal(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	e, store := newTestEngine(t, server.URL)
	e.Send(context.Background(), []core.Record{{"message": "malformed"}})

	assert.EqualValues(t, 1, attempts.Load(), "4xx must not be retried")
	assert.Nil(t, store.DrainAll(), "terminal failures are discarded, not spilled")
}

func TestEngine_ConnectionFailureSpillsAfterRetries(t *testing.T) {
	// Grab a port nothing listens on
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := server.URL
	server.Close()

	e, store := newTestEngine(t, deadURL)
	e.Send(context.Background(), []core.Record{{"message": "unreachable"}})

	recovered := store.DrainAll()
	require.Len(t, recovered, 1)
	assert.Equal(t, "unreachable", recovered[0]["message"])
}

func TestEngine_ExpiredContextSpillsWithoutNetworkAttempt(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, store := newTestEngine(t, server.URL)
	e.Send(ctx, []core.Record{
		{"message": "late-1"},
		{"message": "late-2"},
	})

	assert.Zero(t, attempts.Load(), "a dead deadline must not cost a request timeout per chunk")
	recovered := store.DrainAll()
	require.Len(t, recovered, 2)
	assert.Equal(t, "late-1", recovered[0]["message"])
}

func TestEngine_HistoricalDataFlag(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		APIURL:   server.URL,
		APIKey:   "k",
		LiveLogs: true,
	}
	require.NoError(t, cfg.Validate())
	logger := newTestLogger()
	e := New(cfg, spill.New(t.TempDir(), "hist0001", logger), "i", logger)

	e.Send(context.Background(), []core.Record{{"message": "m"}})

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, true, payload["historical_data"])
}

func TestEngine_BrowserHeaders(t *testing.T) {
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		APIURL:         server.URL,
		APIKey:         "k",
		BrowserHeaders: true,
	}
	require.NoError(t, cfg.Validate())
	logger := newTestLogger()
	e := New(cfg, spill.New(t.TempDir(), "brow0001", logger), "i", logger)

	e.Send(context.Background(), []core.Record{{"message": "m"}})

	assert.Equal(t, "https://poc.teraops.ai", header.Get("Origin"))
	assert.Equal(t, "same-site", header.Get("sec-fetch-site"))
}

func TestEngine_ValidateKey(t *testing.T) {
	t.Run("ValidKey", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"logs":[]}`, string(body))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		e, _ := newTestEngine(t, server.URL)
		assert.NoError(t, e.ValidateKey())
	})

	t.Run("InvalidKeyFailsLoud", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		e, _ := newTestEngine(t, server.URL)
		err := e.ValidateKey()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("ForbiddenKeyFailsLoud", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		e, _ := newTestEngine(t, server.URL)
		err := e.ValidateKey()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("UnreachableEndpointFailsOpen", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		deadURL := server.URL
		server.Close()

		e, _ := newTestEngine(t, deadURL)
		assert.NoError(t, e.ValidateKey(), "network failure must not block startup")
	})
}

func TestEngine_RateLimitedSendStillDelivers(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		APIURL:          server.URL,
		APIKey:          "k",
		RateLimitPerSec: 50,
	}
	require.NoError(t, cfg.Validate())
	logger := newTestLogger()
	e := New(cfg, spill.New(t.TempDir(), "rate0001", logger), "i", logger)

	e.Send(context.Background(), []core.Record{{"message": "a"}})
	e.Send(context.Background(), []core.Record{{"message": "b"}})

	assert.EqualValues(t, 2, requests.Load())
}

func TestEngine_PayloadSplitIntoMultipleRequests(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e, _ := newTestEngine(t, server.URL)

	// Force tiny chunks by sending records near the payload ceiling
	big := make([]byte, core.MaxPayloadSize/2)
	for i := range big {
		big[i] = 'x'
	}
	records := []core.Record{
		{"message": string(big)},
		{"message": string(big)},
		{"message": string(big)},
	}
	e.Send(context.Background(), records)

	assert.EqualValues(t, 3, requests.Load())
}
