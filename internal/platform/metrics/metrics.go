// Package metrics provides observability for the dream server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers runtime counters.
type Collector struct {
	// Scheduler metrics
	CallbacksScheduled int64
	CallbacksFired     int64
	CallbacksCancelled int64
	LoopLatencySum     int64 // nanoseconds
	LoopLatencyMax     int64
	LoopRuns           int64

	// Session metrics
	PhaseTransitions int64
	ActionsAccepted  int64
	ActionsRejected  int64
	SleepExtensions  int64

	// Journal metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	LastPhase string
	mu        sync.RWMutex
}

var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordScheduled counts a callback registered with the scheduler.
func (c *Collector) RecordScheduled() {
	atomic.AddInt64(&c.CallbacksScheduled, 1)
}

// RecordFired counts a callback that actually ran.
func (c *Collector) RecordFired() {
	atomic.AddInt64(&c.CallbacksFired, 1)
}

// RecordCancelled counts callbacks removed before firing.
func (c *Collector) RecordCancelled(n int) {
	atomic.AddInt64(&c.CallbacksCancelled, int64(n))
}

// RecordLoopRun records how long one scheduler drain took.
func (c *Collector) RecordLoopRun(latency time.Duration) {
	atomic.AddInt64(&c.LoopRuns, 1)
	atomic.AddInt64(&c.LoopLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.LoopLatencyMax) {
		atomic.StoreInt64(&c.LoopLatencyMax, int64(latency))
	}
}

// RecordTransition records a phase change.
func (c *Collector) RecordTransition(to string) {
	atomic.AddInt64(&c.PhaseTransitions, 1)

	c.mu.Lock()
	c.LastPhase = to
	c.mu.Unlock()
}

// RecordAction records whether a user action was accepted or ignored.
func (c *Collector) RecordAction(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.ActionsAccepted, 1)
	} else {
		atomic.AddInt64(&c.ActionsRejected, 1)
	}
}

// RecordSleepExtension counts extend-sleep signals.
func (c *Collector) RecordSleepExtension() {
	atomic.AddInt64(&c.SleepExtensions, 1)
}

// RecordEventWrite records an event write to the journal store.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
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

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastPhase := c.LastPhase
	c.mu.RUnlock()

	loopRuns := atomic.LoadInt64(&c.LoopRuns)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var loopAvg, eventAvg float64
	if loopRuns > 0 {
		loopAvg = float64(atomic.LoadInt64(&c.LoopLatencySum)) / float64(loopRuns) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"scheduler": map[string]interface{}{
			"scheduled":      atomic.LoadInt64(&c.CallbacksScheduled),
			"fired":          atomic.LoadInt64(&c.CallbacksFired),
			"cancelled":      atomic.LoadInt64(&c.CallbacksCancelled),
			"loop_runs":      loopRuns,
			"avg_latency_ms": loopAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.LoopLatencyMax)) / 1e6,
		},

		"session": map[string]interface{}{
			"phase":            lastPhase,
			"transitions":      atomic.LoadInt64(&c.PhaseTransitions),
			"actions_accepted": atomic.LoadInt64(&c.ActionsAccepted),
			"actions_rejected": atomic.LoadInt64(&c.ActionsRejected),
			"sleep_extensions": atomic.LoadInt64(&c.SleepExtensions),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP dream_callbacks_total Scheduler callbacks by outcome\n")
		fmt.Fprintf(w, "# TYPE dream_callbacks_total counter\n")
		fmt.Fprintf(w, "dream_callbacks_total{outcome=\"scheduled\"} %d\n", atomic.LoadInt64(&c.CallbacksScheduled))
		fmt.Fprintf(w, "dream_callbacks_total{outcome=\"fired\"} %d\n", atomic.LoadInt64(&c.CallbacksFired))
		fmt.Fprintf(w, "dream_callbacks_total{outcome=\"cancelled\"} %d\n\n", atomic.LoadInt64(&c.CallbacksCancelled))

		fmt.Fprintf(w, "# HELP dream_loop_latency_max_ms Maximum scheduler drain latency\n")
		fmt.Fprintf(w, "# TYPE dream_loop_latency_max_ms gauge\n")
		fmt.Fprintf(w, "dream_loop_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.LoopLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP dream_phase_transitions Total phase transitions\n")
		fmt.Fprintf(w, "# TYPE dream_phase_transitions counter\n")
		fmt.Fprintf(w, "dream_phase_transitions %d\n\n", atomic.LoadInt64(&c.PhaseTransitions))

		fmt.Fprintf(w, "# HELP dream_actions_total User actions by outcome\n")
		fmt.Fprintf(w, "# TYPE dream_actions_total counter\n")
		fmt.Fprintf(w, "dream_actions_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.ActionsAccepted))
		fmt.Fprintf(w, "dream_actions_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.ActionsRejected))

		fmt.Fprintf(w, "# HELP dream_sleep_extensions Total extend-sleep signals\n")
		fmt.Fprintf(w, "# TYPE dream_sleep_extensions counter\n")
		fmt.Fprintf(w, "dream_sleep_extensions %d\n\n", atomic.LoadInt64(&c.SleepExtensions))

		fmt.Fprintf(w, "# HELP dream_events_written Total journal events written\n")
		fmt.Fprintf(w, "# TYPE dream_events_written counter\n")
		fmt.Fprintf(w, "dream_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP dream_event_write_errors Total journal write errors\n")
		fmt.Fprintf(w, "# TYPE dream_event_write_errors counter\n")
		fmt.Fprintf(w, "dream_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP dream_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE dream_ws_connections gauge\n")
		fmt.Fprintf(w, "dream_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP dream_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE dream_ws_messages_total counter\n")
		fmt.Fprintf(w, "dream_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "dream_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
