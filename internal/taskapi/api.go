// Package taskapi describes the REST task-management API under test: its
// paths, the payloads virtual users send, and how responses are decoded.
package taskapi

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Paths of the API under test.
const (
	PathHealth  = "/health"
	PathMetrics = "/metrics"
	PathList    = "/listTasks"
	PathAdd     = "/addTask"
	PathUpdate  = "/updateTask/"
	PathDelete  = "/deleteTask/"
)

// Priorities accepted by the API.
var Priorities = []string{"low", "medium", "high"}

// Statuses accepted by the API.
var Statuses = []string{"pending", "in_progress", "completed"}

// Task is the API's to-do item.
type Task struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ListQuery holds the pagination and filter parameters of /listTasks.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

// Params renders the query; an empty status is omitted.
func (q ListQuery) Params() map[string]string {
	params := map[string]string{
		"page":  fmt.Sprintf("%d", q.Page),
		"limit": fmt.Sprintf("%d", q.Limit),
	}
	if q.Status != "" {
		params["status"] = q.Status
	}
	return params
}

// UpdatePath returns the update path for a task ID.
func UpdatePath(id string) string {
	return PathUpdate + id
}

// DeletePath returns the delete path for a task ID.
func DeletePath(id string) string {
	return PathDelete + id
}

// Suffix returns n lowercase hex characters from a fresh random UUID.
// n is capped at 32.
func Suffix(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}

// Choice returns a random element of options.
func Choice(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

// ChoiceInt returns a random element of options.
func ChoiceInt(rng *rand.Rand, options []int) int {
	return options[rng.Intn(len(options))]
}

// Between returns a random integer in [lo, hi].
func Between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// NewLoadTask generates the payload a standard user creates.
func NewLoadTask(rng *rand.Rand) Task {
	return Task{
		Title:       "Load Test Task " + Suffix(8),
		Description: fmt.Sprintf("This is a test task created by load testing at %d", Between(rng, 1000, 9999)),
		Priority:    Choice(rng, Priorities),
	}
}

// NewUpdate generates a full replacement payload for an existing task.
func NewUpdate(rng *rand.Rand) Task {
	return Task{
		Title:       "Updated Task " + Suffix(6),
		Description: "Updated by load test",
		Status:      Choice(rng, Statuses),
		Priority:    Choice(rng, Priorities),
	}
}

// NewBatchTask generates the i-th task of a rapid create burst.
func NewBatchTask(rng *rand.Rand, i int) Task {
	return Task{
		Title:       fmt.Sprintf("Batch Task %d-%s", i, Suffix(6)),
		Description: fmt.Sprintf("Batch creation test task #%d", i),
		Priority:    Choice(rng, Priorities),
	}
}

// NewAdminTask generates an administrative task; admins always use high priority.
func NewAdminTask() Task {
	return Task{
		Title:       "Admin Task " + Suffix(8),
		Description: "Administrative task creation",
		Priority:    "high",
	}
}
