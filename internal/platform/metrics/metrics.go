// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance counters. All counters are updated atomically.
type Collector struct {
	// Engine
	TickCount        int64
	TickLatencySum   int64 // nanoseconds
	TickLatencyMax   int64
	CommandsApplied  int64
	CommandsRejected int64
	CreditsApplied   int64

	// Analytics write-through
	EventsPersisted  int64
	EventPersistErrs int64
	EventLatencySum  int64
	EventLatencyMax  int64

	// Saves
	SavesWritten int64
	SaveBytes    int64
	SaveErrors   int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSRateLimited       int64

	StartTime    time.Time
	mu           sync.RWMutex
	lastTickTime time.Time
}

var collector = New()

// New creates an empty collector. Most callers want the global one from Get.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records one simulation tick.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.lastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordCommand counts a command by outcome.
func (c *Collector) RecordCommand(applied bool) {
	if applied {
		atomic.AddInt64(&c.CommandsApplied, 1)
	} else {
		atomic.AddInt64(&c.CommandsRejected, 1)
	}
}

// RecordCreditApplied counts a deferred collect credit that landed.
func (c *Collector) RecordCreditApplied() {
	atomic.AddInt64(&c.CreditsApplied, 1)
}

// RecordEventPersist records one analytics event write-through.
func (c *Collector) RecordEventPersist(latency time.Duration, err error) {
	if err != nil {
		atomic.AddInt64(&c.EventPersistErrs, 1)
		return
	}
	atomic.AddInt64(&c.EventsPersisted, 1)
	atomic.AddInt64(&c.EventLatencySum, int64(latency))
	storeMax(&c.EventLatencyMax, int64(latency))
}

// RecordSave records a save attempt and its compressed size.
func (c *Collector) RecordSave(bytes int, err error) {
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
		return
	}
	atomic.AddInt64(&c.SavesWritten, 1)
	atomic.AddInt64(&c.SaveBytes, int64(bytes))
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordRateLimited counts a client message dropped by the rate limiter.
func (c *Collector) RecordRateLimited() {
	atomic.AddInt64(&c.WSRateLimited, 1)
}

func avgMillis(sum, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 1e6
}

// Snapshot returns current metrics as a nested map.
func (c *Collector) Snapshot() map[string]any {
	c.mu.RLock()
	lastTick := c.lastTickTime
	c.mu.RUnlock()

	ticks := atomic.LoadInt64(&c.TickCount)
	persisted := atomic.LoadInt64(&c.EventsPersisted)

	return map[string]any{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"engine": map[string]any{
			"ticks":             ticks,
			"avg_tick_ms":       avgMillis(atomic.LoadInt64(&c.TickLatencySum), ticks),
			"max_tick_ms":       float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":         lastTick.Format(time.RFC3339),
			"commands_applied":  atomic.LoadInt64(&c.CommandsApplied),
			"commands_rejected": atomic.LoadInt64(&c.CommandsRejected),
			"credits_applied":   atomic.LoadInt64(&c.CreditsApplied),
		},

		"analytics": map[string]any{
			"persisted":      persisted,
			"errors":         atomic.LoadInt64(&c.EventPersistErrs),
			"avg_persist_ms": avgMillis(atomic.LoadInt64(&c.EventLatencySum), persisted),
			"max_persist_ms": float64(atomic.LoadInt64(&c.EventLatencyMax)) / 1e6,
		},

		"saves": map[string]any{
			"written": atomic.LoadInt64(&c.SavesWritten),
			"bytes":   atomic.LoadInt64(&c.SaveBytes),
			"errors":  atomic.LoadInt64(&c.SaveErrors),
		},

		"websocket": map[string]any{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"rate_limited":       atomic.LoadInt64(&c.WSRateLimited),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(collector.Snapshot())
	}
}

func writeMetric(w io.Writer, name, kind, help string, value any) {
	fmt.Fprintf(w, "# HELP cosmic_%s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE cosmic_%s %s\n", name, kind)
	fmt.Fprintf(w, "cosmic_%s %v\n\n", name, value)
}

// WritePrometheus writes the collector in the Prometheus text exposition format.
func (c *Collector) WritePrometheus(w io.Writer) {
	writeMetric(w, "ticks_total", "counter", "Simulation ticks", atomic.LoadInt64(&c.TickCount))
	writeMetric(w, "tick_latency_max_ms", "gauge", "Maximum tick latency", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

	fmt.Fprintf(w, "# HELP cosmic_commands_total Player commands by outcome\n")
	fmt.Fprintf(w, "# TYPE cosmic_commands_total counter\n")
	fmt.Fprintf(w, "cosmic_commands_total{outcome=\"applied\"} %d\n", atomic.LoadInt64(&c.CommandsApplied))
	fmt.Fprintf(w, "cosmic_commands_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.CommandsRejected))

	writeMetric(w, "credits_applied_total", "counter", "Deferred collect credits applied", atomic.LoadInt64(&c.CreditsApplied))
	writeMetric(w, "analytics_persisted_total", "counter", "Analytics events written through", atomic.LoadInt64(&c.EventsPersisted))
	writeMetric(w, "analytics_persist_errors_total", "counter", "Analytics write-through failures", atomic.LoadInt64(&c.EventPersistErrs))
	writeMetric(w, "saves_total", "counter", "Saves written", atomic.LoadInt64(&c.SavesWritten))
	writeMetric(w, "save_bytes_total", "counter", "Compressed save bytes written", atomic.LoadInt64(&c.SaveBytes))
	writeMetric(w, "save_errors_total", "counter", "Failed saves", atomic.LoadInt64(&c.SaveErrors))
	writeMetric(w, "ws_connections", "gauge", "Active WebSocket connections", atomic.LoadInt64(&c.WSConnectionsActive))

	fmt.Fprintf(w, "# HELP cosmic_ws_messages_total WebSocket messages\n")
	fmt.Fprintf(w, "# TYPE cosmic_ws_messages_total counter\n")
	fmt.Fprintf(w, "cosmic_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
	fmt.Fprintf(w, "cosmic_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

	writeMetric(w, "ws_rate_limited_total", "counter", "Client messages dropped by the rate limiter", atomic.LoadInt64(&c.WSRateLimited))
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		collector.WritePrometheus(w)
	}
}
