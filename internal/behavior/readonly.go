package behavior

import (
	"context"
	"net/http"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

// ReadOnly browses the first pages of tasks and occasionally checks health.
func ReadOnly() *swarm.Profile {
	return &swarm.Profile{
		Name:    NameReadOnly,
		Weight:  3,
		MinWait: 2 * time.Second,
		MaxWait: 5 * time.Second,
		Tasks: []swarm.Task{
			{Name: "browse_tasks", Weight: 10, Fn: browseTasks},
			{Name: "check_health", Weight: 1, Fn: checkHealth},
		},
	}
}

func browseTasks(ctx context.Context, vu *swarm.VirtualUser) {
	q := taskapi.ListQuery{Page: taskapi.Between(vu.Rand, 1, 3), Limit: 10}
	req := swarm.NewRequest(http.MethodGet, taskapi.PathList).
		Named("/listTasks-readonly").
		WithQueryParams(q.Params())
	vu.Session.Do(ctx, req).Close()
}

func checkHealth(ctx context.Context, vu *swarm.VirtualUser) {
	vu.Session.Do(ctx, swarm.NewRequest(http.MethodGet, taskapi.PathHealth).Named("/health-readonly")).Close()
}
