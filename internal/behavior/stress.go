package behavior

import (
	"context"
	"net/http"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

var stressLimits = []int{20, 50, 100}

// DatabaseStress hammers the database with bursts of paginated reads and
// rapid creates. It keeps no state and never cleans up.
func DatabaseStress() *swarm.Profile {
	return &swarm.Profile{
		Name:    NameDatabaseStress,
		Weight:  1,
		MinWait: 100 * time.Millisecond,
		MaxWait: 500 * time.Millisecond,
		Tasks: []swarm.Task{
			{Name: "intensive_list_operations", Weight: 1, Fn: intensiveList},
			{Name: "batch_create_operations", Weight: 1, Fn: batchCreate},
		},
	}
}

func intensiveList(ctx context.Context, vu *swarm.VirtualUser) {
	n := taskapi.Between(vu.Rand, 3, 7)
	for i := 0; i < n && ctx.Err() == nil; i++ {
		q := taskapi.ListQuery{
			Page:  taskapi.Between(vu.Rand, 1, 10),
			Limit: taskapi.ChoiceInt(vu.Rand, stressLimits),
		}
		req := swarm.NewRequest(http.MethodGet, taskapi.PathList).
			Named("/listTasks-intensive").
			WithQueryParams(q.Params())
		vu.Session.Do(ctx, req).Close()
	}
}

func batchCreate(ctx context.Context, vu *swarm.VirtualUser) {
	n := taskapi.Between(vu.Rand, 5, 10)
	for i := 0; i < n && ctx.Err() == nil; i++ {
		req := swarm.NewRequest(http.MethodPost, taskapi.PathAdd).
			Named("/addTask-batch").
			WithBody(taskapi.NewBatchTask(vu.Rand, i))
		vu.Session.Do(ctx, req).Close()
	}
}
