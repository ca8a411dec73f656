// Package scheduler expands tests into per-mode work units and runs them on
// a pool of workers.
package scheduler

import (
	"regexp"

	"github.com/crosstest-vm/crosstest/cache"
	"github.com/crosstest-vm/crosstest/script"
	"github.com/crosstest-vm/crosstest/summary"
)

// Artifact is the mode-specific build product of one test: the contract
// instances it declares and the cases scripted against them. Instances are
// prototypes, every case run operates on undeployed clones.
type Artifact struct {
	Instances map[string]*script.Instance
	Cases     []*script.Case
}

// Builder produces the artifact of a test for one mode.
type Builder func(mode string) (*Artifact, error)

// Cached wraps a builder so each (test, mode) artifact is built once and
// shared. Safe because Run hands every case undeployed instance clones.
func Cached(builds *cache.Cache[string, *Artifact], name string, build Builder) Builder {
	return func(mode string) (*Artifact, error) {
		return builds.GetOrCompute(name+"|"+mode, func() (*Artifact, error) {
			return build(mode)
		})
	}
}

// Test describes one test independent of mode.
type Test struct {
	Name    string
	Group   *string
	Modes   []string // restricts the test to these modes, empty means all
	Ignored bool
	Build   Builder
}

// Unit is one test in one mode, the granularity of scheduling. Build
// failures and panics are contained at this level.
type Unit struct {
	Name    string
	Group   *string
	Mode    string
	Ignored bool
	Build   func() (*Artifact, error)
}

func (u *Unit) description(name string) summary.TestDescription {
	return summary.TestDescription{Group: u.Group, Mode: u.Mode, Name: name}
}

// Matrix expands tests into units, one per requested mode, dropping tests
// whose name does not match the filter and modes a test does not support.
func Matrix(tests []Test, modes []string, filter *regexp.Regexp) []Unit {
	units := make([]Unit, 0, len(tests)*len(modes))
	for _, test := range tests {
		if filter != nil && !filter.MatchString(test.Name) {
			continue
		}
		for _, mode := range modes {
			mode := mode
			if !test.supports(mode) {
				continue
			}
			build := test.Build
			units = append(units, Unit{
				Name:    test.Name,
				Group:   test.Group,
				Mode:    mode,
				Ignored: test.Ignored,
				Build: func() (*Artifact, error) {
					return build(mode)
				},
			})
		}
	}
	return units
}

func (t *Test) supports(mode string) bool {
	if len(t.Modes) == 0 {
		return true
	}
	for _, supported := range t.Modes {
		if supported == mode {
			return true
		}
	}
	return false
}
