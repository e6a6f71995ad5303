// Package behavior defines the built-in virtual user profiles that exercise
// the task API.
package behavior

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/config"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

// Profile names.
const (
	NameStandard       = "standard"
	NameDatabaseStress = "database-stress"
	NameReadOnly       = "read-only"
	NameAdmin          = "admin"
)

// Options tune the built-in profiles.
type Options struct {
	// RequestTimeout is applied to a standard user's session on start
	RequestTimeout time.Duration

	// InsecureSkipVerify disables TLS verification for standard users
	InsecureSkipVerify bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		RequestTimeout:     config.DefaultRequestTimeout,
		InsecureSkipVerify: true,
	}
}

// Builtin returns fresh copies of every built-in profile in their default
// mix order.
func Builtin(opts Options) []*swarm.Profile {
	return []*swarm.Profile{
		Standard(opts),
		DatabaseStress(),
		ReadOnly(),
		Admin(),
	}
}

// Names returns the built-in profile names in mix order.
func Names() []string {
	profiles := Builtin(DefaultOptions())
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// Resolve builds the profiles for a run. A nil mix selects every built-in
// profile with its default weight and think time. Otherwise only the listed
// profiles run, in the listed order, with the mix's overrides applied.
func Resolve(mix *config.ProfileMix, opts Options) ([]*swarm.Profile, error) {
	builtin := Builtin(opts)
	if mix == nil {
		return builtin, nil
	}

	byName := make(map[string]*swarm.Profile, len(builtin))
	for _, p := range builtin {
		byName[p.Name] = p
	}

	errs := &config.ValidationErrors{}
	profiles := make([]*swarm.Profile, 0, len(mix.Profiles))
	for i, entry := range mix.Profiles {
		p, ok := byName[entry.Name]
		if !ok {
			errs.Add(fmt.Sprintf("profiles[%d].name", i),
				fmt.Sprintf("unknown profile %q, expected one of %s", entry.Name, strings.Join(sortedNames(byName), ", ")))
			continue
		}
		if entry.Weight != nil {
			p.Weight = *entry.Weight
		}
		if entry.Wait != nil {
			p.MinWait = entry.Wait.Min.Std()
			p.MaxWait = entry.Wait.Max.Std()
		}
		if err := p.Validate(); err != nil {
			errs.Add(fmt.Sprintf("profiles[%d]", i), err.Error())
			continue
		}
		profiles = append(profiles, p)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return profiles, nil
}

func sortedNames(m map[string]*swarm.Profile) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
