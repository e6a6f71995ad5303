package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
)

// RunInfo describes the run passed to start and stop hooks.
type RunInfo struct {
	Host      string
	Users     int
	SpawnRate float64
	RunTime   time.Duration
	Profiles  []string
}

// RequestFailure is emitted for every request classified as failed.
type RequestFailure struct {
	Method     string
	Name       string
	StatusCode int
	Duration   time.Duration
	Message    string
}

// Hooks holds run-level observers. Register them before the run starts;
// registration during a run is safe but may miss events already fired.
type Hooks struct {
	mu      sync.RWMutex
	start   []func(ctx context.Context, info *RunInfo)
	stop    []func(ctx context.Context, info *RunInfo, summary metrics.Summary)
	failure []func(f RequestFailure)
}

// NewHooks returns an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{}
}

// OnTestStart registers fn to run once before any user is spawned.
func (h *Hooks) OnTestStart(fn func(ctx context.Context, info *RunInfo)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start = append(h.start, fn)
}

// OnTestStop registers fn to run once after every user has stopped.
func (h *Hooks) OnTestStop(fn func(ctx context.Context, info *RunInfo, summary metrics.Summary)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stop = append(h.stop, fn)
}

// OnRequestFailure registers fn to run for every failed request. It is
// called from user goroutines and must be safe for concurrent use.
func (h *Hooks) OnRequestFailure(fn func(f RequestFailure)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failure = append(h.failure, fn)
}

func (h *Hooks) fireTestStart(ctx context.Context, info *RunInfo) {
	if h == nil {
		return
	}
	h.mu.RLock()
	fns := h.start
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, info)
	}
}

func (h *Hooks) fireTestStop(ctx context.Context, info *RunInfo, summary metrics.Summary) {
	if h == nil {
		return
	}
	h.mu.RLock()
	fns := h.stop
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, info, summary)
	}
}

func (h *Hooks) fireRequestFailure(f RequestFailure) {
	if h == nil {
		return
	}
	h.mu.RLock()
	fns := h.failure
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(f)
	}
}
