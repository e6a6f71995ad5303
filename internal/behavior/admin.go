package behavior

import (
	"context"
	"net/http"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

// Admin creates high-priority tasks and pulls large pages in bulk.
//
// Created IDs are tracked per user but never updated, deleted or cleaned
// up.
func Admin() *swarm.Profile {
	return &swarm.Profile{
		Name:    NameAdmin,
		Weight:  1,
		MinWait: 1 * time.Second,
		MaxWait: 2 * time.Second,
		Tasks: []swarm.Task{
			{Name: "admin_create_task", Weight: 5, Fn: adminCreate},
			{Name: "admin_bulk_operations", Weight: 3, Fn: adminBulk},
		},
	}
}

func adminCreate(ctx context.Context, vu *swarm.VirtualUser) {
	req := swarm.NewRequest(http.MethodPost, taskapi.PathAdd).
		Named("/addTask-admin").
		WithBody(taskapi.NewAdminTask())

	resp := vu.Session.Do(ctx, req)
	defer resp.Close()

	if resp.StatusCode == http.StatusCreated {
		trackCreated(vu, resp)
	}
}

func adminBulk(ctx context.Context, vu *swarm.VirtualUser) {
	for page := 1; page <= 5 && ctx.Err() == nil; page++ {
		q := taskapi.ListQuery{Page: page, Limit: 50}
		req := swarm.NewRequest(http.MethodGet, taskapi.PathList).
			Named("/listTasks-bulk").
			WithQueryParams(q.Params())
		vu.Session.Do(ctx, req).Close()
	}
}
