package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
)

// DefaultGracefulStop is how long stopped users get to finish their current
// task and cleanup before in-flight requests are aborted.
const DefaultGracefulStop = 30 * time.Second

// Config contains the settings for a run.
type Config struct {
	Host           string
	Users          int
	SpawnRate      float64
	RunTime        time.Duration // zero runs until the context is cancelled
	RequestTimeout time.Duration
	GracefulStop   time.Duration
	Seed           int64
}

// Runner is the orchestrator for a load run.
//
// It coordinates:
//   - Start and stop hooks
//   - Rate-limited spawning through a Scheduler
//   - Run time and interruption
//   - Graceful stop of every user, including their OnStop cleanup
//
// Example usage:
//
//	runner, _ := NewRunner(cfg, behavior.Builtin(opts), metrics.NewEngine(), hooks, logger)
//	result, _ := runner.Run(ctx)
//	fmt.Printf("%d requests\n", result.Summary.TotalRequests)
type Runner struct {
	config  Config
	mix     *Mix
	metrics *metrics.Engine
	hooks   *Hooks
	logger  *zap.Logger

	mu        sync.RWMutex
	scheduler *Scheduler
	startTime time.Time
	running   bool
	cancel    context.CancelFunc
}

// Result contains the outcome of a run.
type Result struct {
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	Duration     time.Duration   `json:"duration"`
	UsersSpawned int             `json:"usersSpawned"`
	Profiles     map[string]int  `json:"profiles"`
	Interrupted  bool            `json:"interrupted"`
	ForcedStop   bool            `json:"forcedStop"`
	Summary      metrics.Summary `json:"summary"`
}

// NewRunner creates a runner over profiles. A nil engine gets a fresh one,
// nil hooks an empty set and a nil logger a no-op logger.
func NewRunner(config Config, profiles []*Profile, m *metrics.Engine, hooks *Hooks, logger *zap.Logger) (*Runner, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if config.Users <= 0 {
		return nil, fmt.Errorf("users must be positive, got %d", config.Users)
	}
	if config.SpawnRate <= 0 {
		return nil, fmt.Errorf("spawn rate must be positive, got %g", config.SpawnRate)
	}
	if config.GracefulStop <= 0 {
		config.GracefulStop = DefaultGracefulStop
	}

	mix, err := NewMix(profiles)
	if err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}

	if m == nil {
		m = metrics.NewEngine()
	}
	if hooks == nil {
		hooks = NewHooks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		config:  config,
		mix:     mix,
		metrics: m,
		hooks:   hooks,
		logger:  logger,
	}, nil
}

// Info describes the run for hooks.
func (r *Runner) Info() *RunInfo {
	names := make([]string, 0, len(r.mix.Profiles()))
	for _, p := range r.mix.Profiles() {
		names = append(names, p.Name)
	}
	return &RunInfo{
		Host:      r.config.Host,
		Users:     r.config.Users,
		SpawnRate: r.config.SpawnRate,
		RunTime:   r.config.RunTime,
		Profiles:  names,
	}
}

// Run executes the load run and blocks until every user has stopped.
//
// The run ends when RunTime elapses, ctx is cancelled or Stop is called.
// Users are then asked to stop and given GracefulStop to finish; after that
// their in-flight requests are aborted.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner is already running")
	}
	r.running = true
	r.startTime = time.Now()

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if r.config.RunTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.RunTime)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	r.cancel = cancel

	scheduler := NewScheduler(SchedulerConfig{
		Host:           r.config.Host,
		Users:          r.config.Users,
		SpawnRate:      r.config.SpawnRate,
		RequestTimeout: r.config.RequestTimeout,
		Seed:           r.config.Seed,
	}, r.mix, r.metrics, r.hooks, r.logger)
	r.scheduler = scheduler
	r.mu.Unlock()

	defer func() {
		cancel()
		scheduler.Close()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	info := r.Info()
	r.hooks.fireTestStart(ctx, info)

	// Users outlive the run context so stopping them is graceful. userCtx is
	// only cancelled once the graceful stop period runs out.
	userCtx, hardStop := context.WithCancel(context.WithoutCancel(ctx))
	defer hardStop()

	spawned := scheduler.Spawn(runCtx, userCtx)
	r.logger.Info("all users spawned", zap.Int("users", spawned))

	<-runCtx.Done()
	interrupted := ctx.Err() != nil || runCtx.Err() == context.Canceled

	r.logger.Info("stopping users", zap.Int("active", scheduler.ActiveUsers()))
	scheduler.StopAll()

	forced := false
	if !scheduler.Wait(r.config.GracefulStop) {
		forced = true
		r.logger.Warn("graceful stop timed out, aborting in-flight requests",
			zap.Duration("timeout", r.config.GracefulStop))
		hardStop()
		scheduler.Wait(0)
	}

	summary := r.metrics.Summary()
	r.hooks.fireTestStop(context.WithoutCancel(ctx), info, summary)

	end := time.Now()
	return &Result{
		StartTime:    r.startTime,
		EndTime:      end,
		Duration:     end.Sub(r.startTime),
		UsersSpawned: spawned,
		Profiles:     scheduler.ProfileCounts(),
		Interrupted:  interrupted,
		ForcedStop:   forced,
		Summary:      summary,
	}, nil
}

// Stop ends the run early. Users stop gracefully as they would at the end
// of the run time.
func (r *Runner) Stop() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true while Run is executing.
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Metrics returns the run's statistics engine.
func (r *Runner) Metrics() *metrics.Engine {
	return r.metrics
}

// Config returns the run configuration.
func (r *Runner) Config() Config {
	return r.config
}

// Progress returns the fraction of the run time elapsed, or zero when the
// run is unbounded or not running.
func (r *Runner) Progress() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.running || r.config.RunTime <= 0 {
		return 0
	}
	p := float64(time.Since(r.startTime)) / float64(r.config.RunTime)
	if p > 1 {
		p = 1
	}
	return p
}

// Users returns the users spawned so far.
func (r *Runner) Users() []*VirtualUser {
	r.mu.RLock()
	s := r.scheduler
	r.mu.RUnlock()
	if s == nil {
		return nil
	}
	return s.Users()
}
