// Package swarm runs virtual users against an HTTP target.
//
// A Runner spawns users at a fixed rate through a Scheduler. Each user is
// one goroutine looping over its Profile's weighted tasks, sleeping a random
// think time between them, until it is asked to stop. Every request goes
// through the user's Session, which records the outcome in a metrics.Engine
// exactly once.
package swarm

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// UserState represents the lifecycle state of a virtual user.
type UserState int32

const (
	// UserStateIdle indicates the user was created but has not started.
	UserStateIdle UserState = iota
	// UserStateRunning indicates the user is executing tasks.
	UserStateRunning
	// UserStateStopping indicates the user has been asked to stop.
	UserStateStopping
	// UserStateStopped indicates the user ran its stop hook and exited.
	UserStateStopped
)

func (s UserState) String() string {
	switch s {
	case UserStateIdle:
		return "idle"
	case UserStateRunning:
		return "running"
	case UserStateStopping:
		return "stopping"
	case UserStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser is a single simulated client.
//
// Each user has its own:
// - Session (timeout and TLS settings)
// - Owned task IDs
// - Random source
// - Lifecycle state
//
// Users are created by the Scheduler; task functions receive the user and
// reach everything they need through it.
type VirtualUser struct {
	// Unique identifier for this user
	ID int

	// Profile defines what the user does
	Profile *Profile

	// Session sends requests to the target
	Session *Session

	// Owned holds the task IDs this user created
	Owned *OwnedIDs

	// Rand is the user's random source; only use it from task functions
	Rand *rand.Rand

	Logger *zap.Logger

	state     atomic.Int32
	iteration atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewVirtualUser creates a user. A nil logger disables logging.
func NewVirtualUser(id int, profile *Profile, session *Session, rng *rand.Rand, logger *zap.Logger) *VirtualUser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VirtualUser{
		ID:      id,
		Profile: profile,
		Session: session,
		Owned:   NewOwnedIDs(),
		Rand:    rng,
		Logger:  logger.With(zap.Int("user", id), zap.String("profile", profile.Name)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (vu *VirtualUser) State() UserState {
	return UserState(vu.state.Load())
}

// Iterations returns the number of tasks the user has run.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iteration.Load()
}

// Run executes the user's lifecycle: the profile's OnStart, then weighted
// tasks separated by think time until RequestStop is called or ctx is done,
// then OnStop. A task that is already running when the stop arrives is
// allowed to finish.
//
// Cancelling ctx is a hard stop: in-flight requests are aborted and are not
// recorded. OnStop still runs, but its requests fail immediately.
func (vu *VirtualUser) Run(ctx context.Context) {
	vu.state.Store(int32(UserStateRunning))
	defer vu.markStopped()

	if vu.Profile.OnStart != nil && !vu.stopping(ctx) {
		vu.Profile.OnStart(ctx, vu)
	}

	for !vu.stopping(ctx) {
		task := vu.Profile.PickTask(vu.Rand)
		if task == nil {
			break
		}
		task.Fn(ctx, vu)
		vu.iteration.Add(1)

		if !vu.sleep(ctx, vu.Profile.WaitTime(vu.Rand)) {
			break
		}
	}

	vu.state.Store(int32(UserStateStopping))
	if vu.Profile.OnStop != nil {
		vu.Profile.OnStop(ctx, vu)
	}
}

// RequestStop asks the user to stop after its current task.
// Safe to call multiple times and from any goroutine.
func (vu *VirtualUser) RequestStop() {
	vu.stopOnce.Do(func() {
		if vu.State() == UserStateRunning {
			vu.state.Store(int32(UserStateStopping))
		}
		close(vu.stopCh)
	})
}

// WaitForStop blocks until the user has stopped or timeout elapses.
// It reports whether the user stopped.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	select {
	case <-vu.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done returns a channel closed once the user has stopped.
func (vu *VirtualUser) Done() <-chan struct{} {
	return vu.doneCh
}

func (vu *VirtualUser) markStopped() {
	vu.state.Store(int32(UserStateStopped))
	close(vu.doneCh)
}

func (vu *VirtualUser) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-vu.stopCh:
		return true
	default:
		return false
	}
}

// sleep waits for d and reports false if it was interrupted by a stop.
func (vu *VirtualUser) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !vu.stopping(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-vu.stopCh:
		return false
	}
}
