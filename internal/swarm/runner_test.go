package swarm

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
	"github.com/wesleyorama2/taskswarm/internal/taskapi/taskapitest"
)

func healthProfile(name string, weight int, stops *atomic.Int32) *Profile {
	return &Profile{
		Name:    name,
		Weight:  weight,
		MinWait: 5 * time.Millisecond,
		MaxWait: 10 * time.Millisecond,
		Tasks: []Task{{Name: "health", Weight: 1, Fn: func(ctx context.Context, vu *VirtualUser) {
			resp := vu.Session.Do(ctx, NewRequest(http.MethodGet, "/health"))
			resp.Close()
		}}},
		OnStop: func(context.Context, *VirtualUser) {
			if stops != nil {
				stops.Add(1)
			}
		},
	}
}

func TestNewRunner_Validation(t *testing.T) {
	profiles := []*Profile{healthProfile("p", 1, nil)}

	_, err := NewRunner(Config{Users: 1, SpawnRate: 1}, profiles, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewRunner(Config{Host: "http://x", SpawnRate: 1}, profiles, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewRunner(Config{Host: "http://x", Users: 1}, profiles, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewRunner(Config{Host: "http://x", Users: 1, SpawnRate: 1}, nil, nil, nil, nil)
	assert.Error(t, err)

	r, err := NewRunner(Config{Host: "http://x", Users: 1, SpawnRate: 1}, profiles, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGracefulStop, r.Config().GracefulStop)
	assert.NotNil(t, r.Metrics())
}

func TestRunner_Run(t *testing.T) {
	srv := taskapitest.NewServer()
	defer srv.Close()

	var stops, starts, stopHooks atomic.Int32
	var stopSummary metrics.Summary

	hooks := NewHooks()
	hooks.OnTestStart(func(_ context.Context, info *RunInfo) {
		starts.Add(1)
		assert.Equal(t, srv.URL, info.Host)
		assert.Equal(t, 4, info.Users)
		assert.Equal(t, []string{"light", "heavy"}, info.Profiles)
	})
	hooks.OnTestStop(func(_ context.Context, _ *RunInfo, s metrics.Summary) {
		stopHooks.Add(1)
		stopSummary = s
	})

	runner, err := NewRunner(Config{
		Host:           srv.URL,
		Users:          4,
		SpawnRate:      100,
		RunTime:        300 * time.Millisecond,
		RequestTimeout: time.Second,
		Seed:           1,
	}, []*Profile{
		healthProfile("light", 1, &stops),
		healthProfile("heavy", 3, &stops),
	}, metrics.NewEngine(), hooks, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, int32(1), stopHooks.Load())
	assert.Equal(t, int32(4), stops.Load(), "every user runs its stop hook")

	assert.Equal(t, 4, result.UsersSpawned)
	assert.Equal(t, map[string]int{"light": 1, "heavy": 3}, result.Profiles)
	assert.False(t, result.Interrupted)
	assert.False(t, result.ForcedStop)
	assert.GreaterOrEqual(t, result.Duration, 300*time.Millisecond)

	assert.Positive(t, result.Summary.TotalRequests)
	assert.Equal(t, int64(0), result.Summary.TotalFailures)
	assert.Equal(t, result.Summary.TotalRequests, stopSummary.TotalRequests)
	assert.Equal(t, int(result.Summary.TotalRequests), srv.Count(taskapitest.RouteHealth))

	for _, vu := range runner.Users() {
		assert.Equal(t, UserStateStopped, vu.State())
	}
	assert.False(t, runner.IsRunning())
	assert.Equal(t, 0, runner.Metrics().ActiveUsers())
}

func TestRunner_ContextCancel(t *testing.T) {
	srv := taskapitest.NewServer()
	defer srv.Close()

	var stops atomic.Int32
	runner, err := NewRunner(Config{
		Host:      srv.URL,
		Users:     2,
		SpawnRate: 100,
	}, []*Profile{healthProfile("p", 1, &stops)}, nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, int32(2), stops.Load())
}

func TestRunner_Stop(t *testing.T) {
	srv := taskapitest.NewServer()
	defer srv.Close()

	runner, err := NewRunner(Config{
		Host:      srv.URL,
		Users:     1,
		SpawnRate: 10,
		RunTime:   time.Hour,
	}, []*Profile{healthProfile("p", 1, nil)}, nil, nil, nil)
	require.NoError(t, err)

	done := make(chan *Result)
	go func() {
		result, _ := runner.Run(context.Background())
		done <- result
	}()

	require.Eventually(t, runner.IsRunning, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return runner.Progress() > 0 }, time.Second, time.Millisecond)
	runner.Stop()

	select {
	case result := <-done:
		assert.True(t, result.Interrupted)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_GracefulStopTimeout(t *testing.T) {
	var stopped atomic.Bool
	blocking := &Profile{
		Name:   "stuck",
		Weight: 1,
		Tasks: []Task{{Name: "block", Weight: 1, Fn: func(ctx context.Context, _ *VirtualUser) {
			<-ctx.Done()
		}}},
		OnStop: func(context.Context, *VirtualUser) { stopped.Store(true) },
	}

	runner, err := NewRunner(Config{
		Host:         "http://127.0.0.1:0",
		Users:        1,
		SpawnRate:    10,
		RunTime:      50 * time.Millisecond,
		GracefulStop: 50 * time.Millisecond,
	}, []*Profile{blocking}, nil, nil, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.ForcedStop)
	assert.True(t, stopped.Load())
}

func TestRunner_AlreadyRunning(t *testing.T) {
	srv := taskapitest.NewServer()
	defer srv.Close()

	runner, err := NewRunner(Config{
		Host:      srv.URL,
		Users:     1,
		SpawnRate: 10,
		RunTime:   200 * time.Millisecond,
	}, []*Profile{healthProfile("p", 1, nil)}, nil, nil, nil)
	require.NoError(t, err)

	go func() { _, _ = runner.Run(context.Background()) }()
	require.Eventually(t, runner.IsRunning, time.Second, time.Millisecond)

	_, err = runner.Run(context.Background())
	assert.Error(t, err)
}
