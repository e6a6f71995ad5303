package behavior

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

// Logical names for parameterised paths, so every task ID lands in one row.
const (
	nameUpdate = "/updateTask/[id]"
	nameDelete = "/deleteTask/[id]"
)

var (
	listLimits   = []int{5, 10, 20}
	listStatuses = []string{"", "pending", "in_progress", "completed"}
)

// Standard is the typical API consumer: mostly reads, some writes, and
// cleanup of everything it created when it stops.
func Standard(opts Options) *swarm.Profile {
	return &swarm.Profile{
		Name:    NameStandard,
		Weight:  1,
		MinWait: 1 * time.Second,
		MaxWait: 3 * time.Second,
		Tasks: []swarm.Task{
			{Name: "list_tasks", Weight: 10, Fn: listTasks},
			{Name: "create_task", Weight: 5, Fn: createTask},
			{Name: "update_task", Weight: 3, Fn: updateTask},
			{Name: "delete_task", Weight: 2, Fn: deleteTask},
			{Name: "health_check", Weight: 1, Fn: healthCheck},
			{Name: "metrics_endpoint", Weight: 1, Fn: metricsEndpoint},
		},
		OnStart: configureSession(opts),
		OnStop:  cleanupOwned,
	}
}

// configureSession applies the session settings and checks the API is up.
// A failed check is logged but never keeps the user from running.
func configureSession(opts Options) swarm.TaskFunc {
	return func(ctx context.Context, vu *swarm.VirtualUser) {
		vu.Session.SetTimeout(opts.RequestTimeout)
		vu.Session.SetInsecureSkipVerify(opts.InsecureSkipVerify)

		resp := vu.Session.Do(ctx, swarm.NewRequest(http.MethodGet, taskapi.PathHealth))
		defer resp.Close()

		switch {
		case resp.Err != nil:
			vu.Logger.Warn("API health check failed", zap.Error(resp.Err))
		case resp.StatusCode == http.StatusOK:
			vu.Logger.Info("API health check passed")
		default:
			vu.Logger.Warn("API health check failed", zap.Int("status", resp.StatusCode))
		}
	}
}

func listTasks(ctx context.Context, vu *swarm.VirtualUser) {
	q := taskapi.ListQuery{
		Page:   taskapi.Between(vu.Rand, 1, 5),
		Limit:  taskapi.ChoiceInt(vu.Rand, listLimits),
		Status: taskapi.Choice(vu.Rand, listStatuses),
	}
	req := swarm.NewRequest(http.MethodGet, taskapi.PathList).
		Named(taskapi.PathList).
		WithQueryParams(q.Params())

	resp := vu.Session.Do(ctx, req)
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		resp.Failure(fmt.Sprintf("Failed with status %d", resp.StatusCode))
		return
	}
	if !taskapi.ValidJSON(resp.Body) {
		resp.Failure(taskapi.ErrInvalidJSON.Error())
		return
	}
	resp.Success()
}

func createTask(ctx context.Context, vu *swarm.VirtualUser) {
	req := swarm.NewRequest(http.MethodPost, taskapi.PathAdd).
		Named(taskapi.PathAdd).
		WithBody(taskapi.NewLoadTask(vu.Rand))

	resp := vu.Session.Do(ctx, req)
	defer resp.Close()

	if resp.StatusCode != http.StatusCreated {
		resp.Failure(fmt.Sprintf("Failed to create task: %d - %s", resp.StatusCode, resp.Body))
		return
	}
	trackCreated(vu, resp)
}

// trackCreated marks a 201 response and remembers the new task's ID.
// A created task without a usable ID is still a successful create.
func trackCreated(vu *swarm.VirtualUser, resp *swarm.Response) {
	id, err := taskapi.DecodeCreated(resp.Body)
	switch {
	case err == nil:
		vu.Owned.Add(id)
		resp.Success()
	case errors.Is(err, taskapi.ErrInvalidJSON):
		resp.Failure(err.Error())
	default:
		vu.Logger.Debug("created task has no id", zap.Error(err))
		resp.Success()
	}
}

func updateTask(ctx context.Context, vu *swarm.VirtualUser) {
	id, ok := vu.Owned.Random(vu.Rand)
	if !ok {
		return
	}

	req := swarm.NewRequest(http.MethodPut, taskapi.UpdatePath(id)).
		Named(nameUpdate).
		WithBody(taskapi.NewUpdate(vu.Rand))

	resp := vu.Session.Do(ctx, req)
	defer resp.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		resp.Success()
	case http.StatusNotFound:
		// Deleted elsewhere; stop picking it.
		vu.Owned.Remove(id)
		resp.Success()
	default:
		resp.Failure(fmt.Sprintf("Failed to update task: %d", resp.StatusCode))
	}
}

func deleteTask(ctx context.Context, vu *swarm.VirtualUser) {
	id, ok := vu.Owned.Random(vu.Rand)
	if !ok {
		return
	}

	resp := vu.Session.Do(ctx, swarm.NewRequest(http.MethodDelete, taskapi.DeletePath(id)).Named(nameDelete))
	defer resp.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		vu.Owned.Remove(id)
		resp.Success()
	default:
		resp.Failure(fmt.Sprintf("Failed to delete task: %d", resp.StatusCode))
	}
}

func healthCheck(ctx context.Context, vu *swarm.VirtualUser) {
	expectOK(ctx, vu, taskapi.PathHealth, "Health check failed")
}

func metricsEndpoint(ctx context.Context, vu *swarm.VirtualUser) {
	expectOK(ctx, vu, taskapi.PathMetrics, "Metrics endpoint failed")
}

func expectOK(ctx context.Context, vu *swarm.VirtualUser, path, failure string) {
	resp := vu.Session.Do(ctx, swarm.NewRequest(http.MethodGet, path).Named(path))
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		resp.Failure(fmt.Sprintf("%s: %d", failure, resp.StatusCode))
		return
	}
	resp.Success()
}

// cleanupOwned deletes every task the user still owns. A failed delete is
// logged and the remaining IDs are still attempted.
func cleanupOwned(ctx context.Context, vu *swarm.VirtualUser) {
	ids := vu.Owned.Snapshot()
	if len(ids) == 0 {
		return
	}

	removed := 0
	for _, id := range ids {
		resp := vu.Session.Do(ctx, swarm.NewRequest(http.MethodDelete, taskapi.DeletePath(id)).Named(nameDelete))

		switch {
		case resp.Err != nil:
			vu.Logger.Warn("cleanup delete failed", zap.String("task", id), zap.Error(resp.Err))
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound:
			vu.Owned.Remove(id)
			removed++
			resp.Success()
		default:
			vu.Logger.Warn("cleanup delete failed", zap.String("task", id), zap.Int("status", resp.StatusCode))
		}
		resp.Close()
	}

	vu.Logger.Debug("cleanup finished", zap.Int("owned", len(ids)), zap.Int("removed", removed))
}
