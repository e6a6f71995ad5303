package swarm

import (
	"errors"
	"sync"
)

// Mix assigns profiles to spawned users by smooth weighted round-robin,
// so every prefix of assignments tracks the profile weights as closely as
// whole users allow.
type Mix struct {
	mu       sync.Mutex
	profiles []*Profile
	current  []int
	total    int
}

// NewMix validates profiles and builds a mix over them.
func NewMix(profiles []*Profile) (*Mix, error) {
	if len(profiles) == 0 {
		return nil, errors.New("at least one profile is required")
	}
	total := 0
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		total += p.Weight
	}
	return &Mix{
		profiles: profiles,
		current:  make([]int, len(profiles)),
		total:    total,
	}, nil
}

// Profiles returns the profiles in the mix.
func (m *Mix) Profiles() []*Profile {
	return m.profiles
}

// Next returns the profile for the next spawned user.
func (m *Mix) Next() *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := 0
	for i, p := range m.profiles {
		m.current[i] += p.Weight
		if m.current[i] > m.current[best] {
			best = i
		}
	}
	m.current[best] -= m.total
	return m.profiles[best]
}
