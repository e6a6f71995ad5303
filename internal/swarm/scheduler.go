package swarm

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
)

// SchedulerConfig contains the settings the scheduler needs to create users.
type SchedulerConfig struct {
	// Host is the base URL of the target
	Host string

	// Users is the number of users to spawn
	Users int

	// SpawnRate is how many users start per second
	SpawnRate float64

	// RequestTimeout is each session's initial per-request timeout
	RequestTimeout time.Duration

	// Seed derives each user's random source; zero seeds from the clock
	Seed int64
}

// Scheduler manages the lifecycle of virtual users.
//
// It provides:
// - Rate-limited spawning with profile assignment from a Mix
// - Shared HTTP transports
// - Graceful shutdown coordination
type Scheduler struct {
	config  SchedulerConfig
	mix     *Mix
	metrics *metrics.Engine
	hooks   *Hooks
	logger  *zap.Logger

	transports *Transports
	limiter    *rate.Limiter

	users   map[int]*VirtualUser
	usersMu sync.RWMutex
	nextID  int

	group  errgroup.Group
	active atomic.Int32
}

// NewScheduler creates a scheduler. Nothing is spawned until Spawn.
func NewScheduler(config SchedulerConfig, mix *Mix, m *metrics.Engine, hooks *Hooks, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	limit := rate.Limit(config.SpawnRate)
	if config.SpawnRate <= 0 {
		limit = rate.Inf
	}
	return &Scheduler{
		config:     config,
		mix:        mix,
		metrics:    m,
		hooks:      hooks,
		logger:     logger,
		transports: NewTransports(),
		limiter:    rate.NewLimiter(limit, 1),
		users:      make(map[int]*VirtualUser),
	}
}

// Spawn starts users one at a time at the configured rate until Users have
// started or spawnCtx is done. It returns the number of users started.
//
// Users run under userCtx, which should outlive spawnCtx: cancelling it
// aborts in-flight requests.
func (s *Scheduler) Spawn(spawnCtx, userCtx context.Context) int {
	spawned := 0
	for spawned < s.config.Users {
		if err := s.limiter.Wait(spawnCtx); err != nil {
			break
		}
		s.spawnOne(userCtx)
		spawned++
	}
	return spawned
}

func (s *Scheduler) spawnOne(ctx context.Context) *VirtualUser {
	s.usersMu.Lock()
	s.nextID++
	id := s.nextID
	profile := s.mix.Next()
	session := NewSession(s.config.Host, s.transports, s.config.RequestTimeout, s.metrics, s.hooks)
	rng := rand.New(rand.NewSource(s.config.Seed + int64(id)))
	vu := NewVirtualUser(id, profile, session, rng, s.logger)
	s.users[id] = vu
	s.usersMu.Unlock()

	s.setActive(s.active.Add(1))
	s.logger.Debug("user spawned", zap.Int("user", id), zap.String("profile", profile.Name))

	s.group.Go(func() error {
		defer func() {
			s.setActive(s.active.Add(-1))
		}()
		vu.Run(ctx)
		return nil
	})
	return vu
}

func (s *Scheduler) setActive(n int32) {
	if s.metrics != nil {
		s.metrics.SetActiveUsers(int(n))
	}
}

// StopAll asks every spawned user to stop after its current task.
func (s *Scheduler) StopAll() {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	for _, vu := range s.users {
		vu.RequestStop()
	}
}

// Wait blocks until every user goroutine has exited or timeout elapses.
// A non-positive timeout waits indefinitely. It reports whether all users
// exited.
func (s *Scheduler) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Users returns the spawned users ordered by ID.
func (s *Scheduler) Users() []*VirtualUser {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	out := make([]*VirtualUser, 0, len(s.users))
	for _, vu := range s.users {
		out = append(out, vu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveUsers returns the number of user goroutines still running.
func (s *Scheduler) ActiveUsers() int {
	return int(s.active.Load())
}

// ProfileCounts returns how many spawned users were assigned each profile.
func (s *Scheduler) ProfileCounts() map[string]int {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	counts := make(map[string]int)
	for _, vu := range s.users {
		counts[vu.Profile.Name]++
	}
	return counts
}

// Close releases idle connections.
func (s *Scheduler) Close() {
	s.transports.CloseIdleConnections()
}
