package behavior

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/taskswarm/internal/config"
	"github.com/wesleyorama2/taskswarm/internal/metrics"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi/taskapitest"
)

func TestBuiltin(t *testing.T) {
	profiles := Builtin(DefaultOptions())
	require.Len(t, profiles, 4)

	want := []struct {
		name     string
		weight   int
		min, max time.Duration
		tasks    map[string]int
	}{
		{NameStandard, 1, time.Second, 3 * time.Second, map[string]int{
			"list_tasks": 10, "create_task": 5, "update_task": 3,
			"delete_task": 2, "health_check": 1, "metrics_endpoint": 1,
		}},
		{NameDatabaseStress, 1, 100 * time.Millisecond, 500 * time.Millisecond, map[string]int{
			"intensive_list_operations": 1, "batch_create_operations": 1,
		}},
		{NameReadOnly, 3, 2 * time.Second, 5 * time.Second, map[string]int{
			"browse_tasks": 10, "check_health": 1,
		}},
		{NameAdmin, 1, time.Second, 2 * time.Second, map[string]int{
			"admin_create_task": 5, "admin_bulk_operations": 3,
		}},
	}

	for i, w := range want {
		p := profiles[i]
		t.Run(w.name, func(t *testing.T) {
			require.NoError(t, p.Validate())
			assert.Equal(t, w.name, p.Name)
			assert.Equal(t, w.weight, p.Weight)
			assert.Equal(t, w.min, p.MinWait)
			assert.Equal(t, w.max, p.MaxWait)

			tasks := map[string]int{}
			for _, task := range p.Tasks {
				tasks[task.Name] = task.Weight
			}
			assert.Equal(t, w.tasks, tasks)
		})
	}

	assert.NotNil(t, profiles[0].OnStart)
	assert.NotNil(t, profiles[0].OnStop)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"standard", "database-stress", "read-only", "admin"}, Names())
}

func TestDefaultMixAssignment(t *testing.T) {
	mix, err := swarm.NewMix(Builtin(DefaultOptions()))
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		counts[mix.Next().Name]++
	}
	assert.Equal(t, map[string]int{
		NameStandard:       1,
		NameDatabaseStress: 1,
		NameReadOnly:       3,
		NameAdmin:          1,
	}, counts)
}

func TestResolve_NilMix(t *testing.T) {
	profiles, err := Resolve(nil, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, profiles, 4)
}

func TestResolve_Overrides(t *testing.T) {
	weight := 5
	mix := &config.ProfileMix{Profiles: []config.ProfileEntry{
		{Name: NameReadOnly},
		{Name: NameStandard, Weight: &weight, Wait: &config.WaitRange{
			Min: config.Duration(10 * time.Millisecond),
			Max: config.Duration(20 * time.Millisecond),
		}},
	}}

	profiles, err := Resolve(mix, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, NameReadOnly, profiles[0].Name)
	assert.Equal(t, 3, profiles[0].Weight)
	assert.Equal(t, 2*time.Second, profiles[0].MinWait)

	assert.Equal(t, NameStandard, profiles[1].Name)
	assert.Equal(t, 5, profiles[1].Weight)
	assert.Equal(t, 10*time.Millisecond, profiles[1].MinWait)
	assert.Equal(t, 20*time.Millisecond, profiles[1].MaxWait)

	// Overrides never leak into later calls
	fresh := Builtin(DefaultOptions())
	assert.Equal(t, 1, fresh[0].Weight)
}

func TestResolve_UnknownProfile(t *testing.T) {
	mix := &config.ProfileMix{Profiles: []config.ProfileEntry{{Name: "superuser"}}}

	_, err := Resolve(mix, DefaultOptions())
	require.Error(t, err)

	var verrs *config.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"profiles[0].name"}, verrs.Fields())
	assert.Contains(t, err.Error(), `unknown profile "superuser"`)
}

func TestStandardUsersCleanUpAfterRun(t *testing.T) {
	srv := taskapitest.NewServer()
	defer srv.Close()

	weight := 1
	profiles, err := Resolve(&config.ProfileMix{Profiles: []config.ProfileEntry{{
		Name:   NameStandard,
		Weight: &weight,
		Wait: &config.WaitRange{
			Min: config.Duration(time.Millisecond),
			Max: config.Duration(5 * time.Millisecond),
		},
	}}}, Options{RequestTimeout: time.Second})
	require.NoError(t, err)

	m := metrics.NewEngine()
	runner, err := swarm.NewRunner(swarm.Config{
		Host:      srv.URL,
		Users:     3,
		SpawnRate: 100,
		RunTime:   500 * time.Millisecond,
		Seed:      7,
	}, profiles, m, nil, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.UsersSpawned)
	assert.Positive(t, srv.Count(taskapitest.RouteAdd))
	assert.Empty(t, srv.TaskIDs(), "every created task is deleted on stop")
	assert.Equal(t, int64(0), result.Summary.TotalFailures)
	for _, vu := range runner.Users() {
		assert.Equal(t, 0, vu.Owned.Len())
	}
}
