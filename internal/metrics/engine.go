// Package metrics aggregates request statistics for a load run.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects request samples from every virtual user.
//
// Counters are atomic, histograms are guarded by a mutex. Average and
// maximum response times are tracked exactly alongside the HDR histogram,
// which is only used for percentiles.
//
// # Thread Safety
//
// Engine is safe for concurrent use by any number of virtual users.
type Engine struct {
	// Overall latency histogram, microseconds
	latencyHist *hdrhistogram.Histogram
	sumMicros   int64
	minMicros   int64
	maxMicros   int64
	histMu      sync.Mutex

	// Per method+name breakdown
	entries  map[entryKey]*entry
	failures map[failureKey]int64
	entryMu  sync.Mutex

	totalRequests  atomic.Int64
	failedRequests atomic.Int64
	totalBytes     atomic.Int64
	activeUsers    atomic.Int32

	window *rpsWindow

	observers   []Observer
	observersMu sync.RWMutex

	startTime time.Time
	now       func() time.Time
	config    EngineConfig
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int

	// RPSWindow is how many complete seconds the current RPS is averaged over (default: 10)
	RPSWindow int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
		RPSWindow:        10,
	}
}

// Observer receives every recorded sample. Exporters implement it.
type Observer interface {
	ObserveRequest(method, name string, duration time.Duration, failed bool)
	ObserveActiveUsers(count int)
}

type entryKey struct {
	method string
	name   string
}

type failureKey struct {
	method  string
	name    string
	message string
}

type entry struct {
	hist      *hdrhistogram.Histogram
	requests  int64
	failures  int64
	sumMicros int64
	maxMicros int64
	minMicros int64
	bytes     int64
}

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if config.HistogramMin <= 0 {
		config.HistogramMin = def.HistogramMin
	}
	if config.HistogramMax <= config.HistogramMin {
		config.HistogramMax = def.HistogramMax
	}
	if config.HistogramSigFigs <= 0 {
		config.HistogramSigFigs = def.HistogramSigFigs
	}
	if config.RPSWindow <= 0 {
		config.RPSWindow = def.RPSWindow
	}

	e := &Engine{
		latencyHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		entries:     make(map[entryKey]*entry),
		failures:    make(map[failureKey]int64),
		now:         time.Now,
		config:      config,
	}
	e.startTime = e.now()
	e.window = newRPSWindow(config.RPSWindow)
	return e
}

// AddObserver registers an observer that sees every sample from now on.
func (e *Engine) AddObserver(o Observer) {
	e.observersMu.Lock()
	defer e.observersMu.Unlock()
	e.observers = append(e.observers, o)
}

// Record records one request.
//
// An empty failure message means the request succeeded. The message is
// kept verbatim for the failure breakdown in the summary.
func (e *Engine) Record(method, name string, duration time.Duration, bytes int64, failure string) {
	micros := e.clamp(duration.Microseconds())
	failed := failure != ""

	e.histMu.Lock()
	e.latencyHist.RecordValue(micros)
	e.sumMicros += micros
	if e.minMicros == 0 || micros < e.minMicros {
		e.minMicros = micros
	}
	if micros > e.maxMicros {
		e.maxMicros = micros
	}
	e.histMu.Unlock()

	e.recordEntry(method, name, micros, bytes, failure)

	e.totalRequests.Add(1)
	e.totalBytes.Add(bytes)
	if failed {
		e.failedRequests.Add(1)
	}
	e.window.add(e.now())

	e.observersMu.RLock()
	for _, o := range e.observers {
		o.ObserveRequest(method, name, duration, failed)
	}
	e.observersMu.RUnlock()
}

func (e *Engine) clamp(micros int64) int64 {
	if micros < e.config.HistogramMin {
		return e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		return e.config.HistogramMax
	}
	return micros
}

// recordEntry records a sample in the per-endpoint breakdown.
// NOTE: HDR histogram RecordValue is NOT thread-safe, so we must hold a lock.
func (e *Engine) recordEntry(method, name string, micros, bytes int64, failure string) {
	e.entryMu.Lock()
	defer e.entryMu.Unlock()

	key := entryKey{method: method, name: name}
	en, ok := e.entries[key]
	if !ok {
		en = &entry{
			hist: hdrhistogram.New(e.config.HistogramMin, e.config.HistogramMax, e.config.HistogramSigFigs),
		}
		e.entries[key] = en
	}

	en.hist.RecordValue(micros)
	en.requests++
	en.sumMicros += micros
	en.bytes += bytes
	if en.minMicros == 0 || micros < en.minMicros {
		en.minMicros = micros
	}
	if micros > en.maxMicros {
		en.maxMicros = micros
	}

	if failure != "" {
		en.failures++
		e.failures[failureKey{method: method, name: name, message: failure}]++
	}
}

// SetActiveUsers updates the active user count.
func (e *Engine) SetActiveUsers(count int) {
	e.activeUsers.Store(int32(count))

	e.observersMu.RLock()
	for _, o := range e.observers {
		o.ObserveActiveUsers(count)
	}
	e.observersMu.RUnlock()
}

// ActiveUsers returns the current active user count.
func (e *Engine) ActiveUsers() int {
	return int(e.activeUsers.Load())
}

// TotalRequests returns the number of recorded requests.
func (e *Engine) TotalRequests() int64 {
	return e.totalRequests.Load()
}

// TotalFailures returns the number of recorded failures.
func (e *Engine) TotalFailures() int64 {
	return e.failedRequests.Load()
}

// StartTime returns when the engine started collecting.
func (e *Engine) StartTime() time.Time {
	return e.startTime
}

// Summary returns a point-in-time view of all statistics.
func (e *Engine) Summary() Summary {
	now := e.now()
	elapsed := now.Sub(e.startTime)

	total := e.totalRequests.Load()
	failed := e.failedRequests.Load()

	s := Summary{
		TotalRequests: total,
		TotalFailures: failed,
		TotalBytes:    e.totalBytes.Load(),
		ActiveUsers:   e.ActiveUsers(),
		Elapsed:       elapsed,
		StartTime:     e.startTime,
		Timestamp:     now,
	}

	e.histMu.Lock()
	if total > 0 {
		s.AvgResponseTime = microsToMillis(e.sumMicros) / float64(e.latencyHist.TotalCount())
		s.MinResponseTime = microsToMillis(e.minMicros)
		s.MaxResponseTime = microsToMillis(e.maxMicros)
		s.P50ResponseTime = microsToMillis(e.latencyHist.ValueAtQuantile(50))
		s.P95ResponseTime = microsToMillis(e.latencyHist.ValueAtQuantile(95))
		s.P99ResponseTime = microsToMillis(e.latencyHist.ValueAtQuantile(99))
	}
	e.histMu.Unlock()

	if total > 0 {
		s.FailureRatio = float64(failed) / float64(total)
	}
	if elapsed.Seconds() > 0 {
		s.OverallRPS = float64(total) / elapsed.Seconds()
	}

	// Fall back to the overall rate until one full second has passed
	if rps, ok := e.window.current(e.startTime, now); ok {
		s.CurrentRPS = rps
	} else {
		s.CurrentRPS = s.OverallRPS
	}

	s.Endpoints, s.Failures = e.breakdown(elapsed)
	return s
}

// breakdown builds the per-endpoint and per-failure rows.
func (e *Engine) breakdown(elapsed time.Duration) ([]EndpointStats, []FailureStats) {
	e.entryMu.Lock()
	defer e.entryMu.Unlock()

	endpoints := make([]EndpointStats, 0, len(e.entries))
	for key, en := range e.entries {
		row := EndpointStats{
			Method:          key.method,
			Name:            key.name,
			Requests:        en.requests,
			Failures:        en.failures,
			MinResponseTime: microsToMillis(en.minMicros),
			MaxResponseTime: microsToMillis(en.maxMicros),
			P50ResponseTime: microsToMillis(en.hist.ValueAtQuantile(50)),
			P95ResponseTime: microsToMillis(en.hist.ValueAtQuantile(95)),
			Bytes:           en.bytes,
		}
		if en.requests > 0 {
			row.AvgResponseTime = microsToMillis(en.sumMicros) / float64(en.requests)
		}
		if elapsed.Seconds() > 0 {
			row.RPS = float64(en.requests) / elapsed.Seconds()
		}
		endpoints = append(endpoints, row)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Name != endpoints[j].Name {
			return endpoints[i].Name < endpoints[j].Name
		}
		return endpoints[i].Method < endpoints[j].Method
	})

	failures := make([]FailureStats, 0, len(e.failures))
	for key, count := range e.failures {
		failures = append(failures, FailureStats{
			Method:      key.method,
			Name:        key.name,
			Message:     key.message,
			Occurrences: count,
		})
	}
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Occurrences != failures[j].Occurrences {
			return failures[i].Occurrences > failures[j].Occurrences
		}
		if failures[i].Name != failures[j].Name {
			return failures[i].Name < failures[j].Name
		}
		return failures[i].Message < failures[j].Message
	})

	return endpoints, failures
}

func microsToMillis(micros int64) float64 {
	return float64(micros) / 1000.0
}
