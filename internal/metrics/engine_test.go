package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests drive the engine's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(clock *fakeClock) *Engine {
	e := NewEngine()
	e.now = clock.Now
	e.startTime = clock.Now()
	return e
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	require.NotNil(t, engine)

	s := engine.Summary()
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.TotalFailures)
	assert.Zero(t, s.AvgResponseTime)
	assert.Empty(t, s.Endpoints)
}

func TestEngine_Record(t *testing.T) {
	engine := NewEngine()

	engine.Record("GET", "/listTasks", 10*time.Millisecond, 100, "")
	engine.Record("GET", "/listTasks", 30*time.Millisecond, 200, "")
	engine.Record("POST", "/addTask", 20*time.Millisecond, 50, "Failed to create task: 500 - boom")

	s := engine.Summary()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(1), s.TotalFailures)
	assert.Equal(t, int64(350), s.TotalBytes)
	assert.InDelta(t, 1.0/3.0, s.FailureRatio, 0.0001)
	assert.InDelta(t, 20.0, s.AvgResponseTime, 0.001)
	assert.InDelta(t, 10.0, s.MinResponseTime, 0.001)
	assert.InDelta(t, 30.0, s.MaxResponseTime, 0.001)
}

func TestEngine_EndpointBreakdown(t *testing.T) {
	engine := NewEngine()

	engine.Record("PUT", "/updateTask/[id]", 5*time.Millisecond, 0, "")
	engine.Record("GET", "/health", 1*time.Millisecond, 2, "")
	engine.Record("GET", "/health", 3*time.Millisecond, 2, "Health check failed: 503")

	s := engine.Summary()
	require.Len(t, s.Endpoints, 2)

	// Sorted by name
	assert.Equal(t, "/health", s.Endpoints[0].Name)
	assert.Equal(t, "GET", s.Endpoints[0].Method)
	assert.Equal(t, int64(2), s.Endpoints[0].Requests)
	assert.Equal(t, int64(1), s.Endpoints[0].Failures)
	assert.InDelta(t, 2.0, s.Endpoints[0].AvgResponseTime, 0.001)
	assert.InDelta(t, 3.0, s.Endpoints[0].MaxResponseTime, 0.001)

	assert.Equal(t, "/updateTask/[id]", s.Endpoints[1].Name)

	require.Len(t, s.Failures, 1)
	assert.Equal(t, "Health check failed: 503", s.Failures[0].Message)
	assert.Equal(t, int64(1), s.Failures[0].Occurrences)
}

func TestEngine_FailuresGroupedByMessage(t *testing.T) {
	engine := NewEngine()

	for i := 0; i < 3; i++ {
		engine.Record("DELETE", "/deleteTask/[id]", time.Millisecond, 0, "Failed to delete task: 500")
	}
	engine.Record("DELETE", "/deleteTask/[id]", time.Millisecond, 0, "Failed to delete task: 502")

	s := engine.Summary()
	require.Len(t, s.Failures, 2)
	assert.Equal(t, int64(3), s.Failures[0].Occurrences)
	assert.Equal(t, "Failed to delete task: 500", s.Failures[0].Message)
	assert.Equal(t, int64(1), s.Failures[1].Occurrences)
}

func TestEngine_CurrentRPS(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	engine := newTestEngine(clock)

	clock.Advance(500 * time.Millisecond)
	for i := 0; i < 5; i++ {
		engine.Record("GET", "/health", time.Millisecond, 0, "")
	}

	// No complete second yet: falls back to the overall rate
	clock.Advance(300 * time.Millisecond)
	s := engine.Summary()
	assert.InDelta(t, 5.0/0.8, s.CurrentRPS, 0.001)

	clock.Advance(700 * time.Millisecond) // t = 1001.5
	for i := 0; i < 3; i++ {
		engine.Record("GET", "/health", time.Millisecond, 0, "")
	}

	clock.Advance(700 * time.Millisecond) // t = 1002.2
	s = engine.Summary()
	assert.InDelta(t, 4.0, s.CurrentRPS, 0.001)
	assert.InDelta(t, 8.0/2.2, s.OverallRPS, 0.001)
}

func TestEngine_CurrentRPSWindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Unix(2000, 0)}
	engine := newTestEngine(clock)

	// A burst in the first second, then nothing for 20 seconds
	for i := 0; i < 100; i++ {
		engine.Record("GET", "/listTasks", time.Millisecond, 0, "")
	}
	clock.Advance(20 * time.Second)

	s := engine.Summary()
	assert.Zero(t, s.CurrentRPS)
	assert.InDelta(t, 5.0, s.OverallRPS, 0.001)
}

func TestEngine_ActiveUsers(t *testing.T) {
	engine := NewEngine()
	engine.SetActiveUsers(7)

	assert.Equal(t, 7, engine.ActiveUsers())
	assert.Equal(t, 7, engine.Summary().ActiveUsers)
}

func TestEngine_ConcurrentRecord(t *testing.T) {
	engine := NewEngine()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				failure := ""
				if i%10 == 0 {
					failure = "Failed with status 500"
				}
				engine.Record("GET", "/listTasks", time.Duration(i+1)*time.Millisecond, 10, failure)
			}
		}(g)
	}
	wg.Wait()

	s := engine.Summary()
	assert.Equal(t, int64(1000), s.TotalRequests)
	assert.Equal(t, int64(100), s.TotalFailures)
	assert.InDelta(t, 100.0, s.MaxResponseTime, 0.001)
	assert.InDelta(t, 50.5, s.AvgResponseTime, 0.001)
}

func TestEngine_SummaryWhileRecording(t *testing.T) {
	engine := NewEngine()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			engine.Record("GET", "/listTasks", time.Duration(i)*time.Microsecond, 10, "")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s := engine.Summary()
			assert.LessOrEqual(t, s.TotalRequests, int64(500))
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(500), engine.Summary().TotalRequests)
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	engine := NewEngine()
	engine.AddObserver(obs)

	engine.Record("GET", "/health", 2*time.Millisecond, 0, "")
	engine.Record("GET", "/health", 4*time.Millisecond, 0, "Health check failed: 500")
	engine.SetActiveUsers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.requests.WithLabelValues("GET", "/health")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.failures.WithLabelValues("GET", "/health")))
	assert.Equal(t, 3.0, testutil.ToFloat64(obs.activeUsers))
}

func TestPrometheusObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	_, err = NewPrometheusObserver(reg)
	assert.Error(t, err)
}
