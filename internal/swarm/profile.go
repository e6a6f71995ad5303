package swarm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// TaskFunc is one unit of user behaviour. It runs on the user's goroutine.
type TaskFunc func(ctx context.Context, vu *VirtualUser)

// Task is a weighted behaviour a profile picks from each cycle.
type Task struct {
	Name   string
	Weight int
	Fn     TaskFunc
}

// Profile is a user class: the tasks a user runs, how often, and how long
// it thinks between them.
type Profile struct {
	Name string

	// Weight is the profile's share of spawned users.
	Weight int

	// MinWait and MaxWait bound the uniform think time after each task.
	MinWait time.Duration
	MaxWait time.Duration

	Tasks []Task

	// OnStart runs once when a user is spawned, before its first task.
	OnStart TaskFunc

	// OnStop runs once when a user is stopped, after its last task.
	OnStop TaskFunc
}

// Validate checks the profile is usable.
func (p *Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.Weight <= 0 {
		errs = append(errs, fmt.Errorf("weight must be positive, got %d", p.Weight))
	}
	if p.MinWait < 0 {
		errs = append(errs, fmt.Errorf("min wait must not be negative, got %s", p.MinWait))
	}
	if p.MinWait > p.MaxWait {
		errs = append(errs, fmt.Errorf("min wait %s exceeds max wait %s", p.MinWait, p.MaxWait))
	}
	if len(p.Tasks) == 0 {
		errs = append(errs, errors.New("at least one task is required"))
	}
	for i, t := range p.Tasks {
		if t.Weight <= 0 {
			errs = append(errs, fmt.Errorf("task %d (%s): weight must be positive", i, t.Name))
		}
		if t.Fn == nil {
			errs = append(errs, fmt.Errorf("task %d (%s): function is required", i, t.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// PickTask selects a task with probability weight/Σweights.
func (p *Profile) PickTask(rng *rand.Rand) *Task {
	total := 0
	for _, t := range p.Tasks {
		total += t.Weight
	}
	if total <= 0 {
		return nil
	}

	n := rng.Intn(total)
	for i := range p.Tasks {
		n -= p.Tasks[i].Weight
		if n < 0 {
			return &p.Tasks[i]
		}
	}
	return &p.Tasks[len(p.Tasks)-1]
}

// WaitTime returns a think time drawn uniformly from [MinWait, MaxWait].
func (p *Profile) WaitTime(rng *rand.Rand) time.Duration {
	if p.MaxWait <= p.MinWait {
		return p.MinWait
	}
	return p.MinWait + time.Duration(rng.Int63n(int64(p.MaxWait-p.MinWait)+1))
}
