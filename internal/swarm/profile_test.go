package swarm

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *VirtualUser) {}

func TestProfile_Validate(t *testing.T) {
	valid := Profile{
		Name:    "p",
		Weight:  1,
		MinWait: time.Second,
		MaxWait: 2 * time.Second,
		Tasks:   []Task{{Name: "t", Weight: 1, Fn: noop}},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"empty name", func(p *Profile) { p.Name = "" }},
		{"zero weight", func(p *Profile) { p.Weight = 0 }},
		{"min above max", func(p *Profile) { p.MinWait = 3 * time.Second }},
		{"negative wait", func(p *Profile) { p.MinWait = -time.Second }},
		{"no tasks", func(p *Profile) { p.Tasks = nil }},
		{"task without weight", func(p *Profile) { p.Tasks = []Task{{Name: "t", Fn: noop}} }},
		{"task without func", func(p *Profile) { p.Tasks = []Task{{Name: "t", Weight: 1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestProfile_PickTaskFollowsWeights(t *testing.T) {
	p := Profile{Tasks: []Task{
		{Name: "heavy", Weight: 10, Fn: noop},
		{Name: "medium", Weight: 5, Fn: noop},
		{Name: "light", Weight: 1, Fn: noop},
	}}
	rng := rand.New(rand.NewSource(42))

	counts := map[string]int{}
	const n = 16000
	for i := 0; i < n; i++ {
		counts[p.PickTask(rng).Name]++
	}

	assert.InDelta(t, 10000, counts["heavy"], 500)
	assert.InDelta(t, 5000, counts["medium"], 400)
	assert.InDelta(t, 1000, counts["light"], 200)
}

func TestProfile_PickTaskEmpty(t *testing.T) {
	p := Profile{}
	assert.Nil(t, p.PickTask(rand.New(rand.NewSource(1))))
}

func TestProfile_WaitTime(t *testing.T) {
	p := Profile{MinWait: 100 * time.Millisecond, MaxWait: 500 * time.Millisecond}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		d := p.WaitTime(rng)
		require.GreaterOrEqual(t, d, p.MinWait)
		require.LessOrEqual(t, d, p.MaxWait)
	}

	fixed := Profile{MinWait: time.Second, MaxWait: time.Second}
	assert.Equal(t, time.Second, fixed.WaitTime(rng))
}

func TestMix_SmoothWeightedRoundRobin(t *testing.T) {
	mk := func(name string, weight int) *Profile {
		return &Profile{Name: name, Weight: weight, Tasks: []Task{{Name: "t", Weight: 1, Fn: noop}}}
	}
	mix, err := NewMix([]*Profile{
		mk("standard", 1),
		mk("database-stress", 1),
		mk("read-only", 3),
		mk("admin", 1),
	})
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		counts[mix.Next().Name]++
	}
	assert.Equal(t, map[string]int{
		"standard":        1,
		"database-stress": 1,
		"read-only":       3,
		"admin":           1,
	}, counts)

	// The cycle repeats
	for i := 0; i < 6; i++ {
		counts[mix.Next().Name]++
	}
	assert.Equal(t, 6, counts["read-only"])
	assert.Equal(t, 2, counts["admin"])
}

func TestMix_FirstAssignmentFavoursHeaviest(t *testing.T) {
	mix, err := NewMix([]*Profile{
		{Name: "a", Weight: 1, Tasks: []Task{{Name: "t", Weight: 1, Fn: noop}}},
		{Name: "b", Weight: 3, Tasks: []Task{{Name: "t", Weight: 1, Fn: noop}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "b", mix.Next().Name)
}

func TestMix_Errors(t *testing.T) {
	_, err := NewMix(nil)
	assert.Error(t, err)

	_, err = NewMix([]*Profile{{Name: "bad", Weight: 0, Tasks: []Task{{Name: "t", Weight: 1, Fn: noop}}}})
	assert.Error(t, err)
}
