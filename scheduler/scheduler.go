package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pgregory.net/rand"

	"github.com/crosstest-vm/crosstest/script"
	"github.com/crosstest-vm/crosstest/summary"
)

// BackendFactory creates a fresh backend for one case run of the given
// mode. Every case gets its own backend so runs cannot observe each other's
// state.
type BackendFactory func(mode string) (script.Backend, error)

// Config tunes a scheduler run.
type Config struct {
	// Jobs is the number of parallel workers, at least 1.
	Jobs int

	// Seed, when non-zero, shuffles the unit order reproducibly. Useful to
	// spread expensive builds across the run.
	Seed uint64

	// Progress, when set, is called every five seconds and once at the end
	// with the elapsed time, the unit rate since the last call, and the
	// total number of processed units.
	Progress func(elapsed time.Duration, rate float64, total int64)
}

// Run processes all units on a pool of workers. Outcomes land in the
// summary, one per case step, plus one per unit that could not be built. A
// panicking unit is contained and reported as invalid. The outcome counters
// do not depend on the number of workers.
func Run(units []Unit, backends BackendFactory, s *summary.Summary, config Config) {
	jobs := config.Jobs
	if jobs < 1 {
		jobs = 1
	}

	if config.Seed != 0 {
		units = append([]Unit{}, units...)
		rnd := rand.New(config.Seed)
		rnd.Shuffle(len(units), func(i, j int) {
			units[i], units[j] = units[j], units[i]
		})
	}

	var unitCounter atomic.Int64

	done := make(chan struct{})
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		if config.Progress == nil {
			return
		}
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		startTime := time.Now()
		lastTime := startTime
		lastCounter := int64(0)

		report := func(now time.Time) {
			current := unitCounter.Load()
			rate := float64(current-lastCounter) / now.Sub(lastTime).Seconds()
			lastTime = now
			lastCounter = current
			config.Progress(now.Sub(startTime), rate, current)
		}

		for {
			select {
			case <-done:
				report(time.Now())
				return
			case now := <-ticker.C:
				report(now)
			}
		}
	}()

	unitChannel := make(chan Unit, 10*jobs)
	var workers sync.WaitGroup
	workers.Add(jobs)
	for i := 0; i < jobs; i++ {
		go func() {
			defer workers.Done()
			for unit := range unitChannel {
				runUnit(&unit, backends, s)
				unitCounter.Add(1)
			}
		}()
	}

	for _, unit := range units {
		unitChannel <- unit
	}
	close(unitChannel)
	workers.Wait()

	close(done)
	<-printerDone
}

// runUnit builds and executes one unit. Panics from backends or case code
// are contained here so a single broken unit cannot take down the run.
func runUnit(unit *Unit, backends BackendFactory, s *summary.Summary) {
	defer func() {
		if r := recover(); r != nil {
			s.Invalid(unit.description(unit.Name), fmt.Errorf("panic: %v", r))
		}
	}()

	if unit.Ignored {
		s.Ignored(unit.description(unit.Name))
		return
	}

	artifact, err := unit.Build()
	if err != nil {
		s.Invalid(unit.description(unit.Name), err)
		return
	}

	for _, c := range artifact.Cases {
		backend, err := backends(unit.Mode)
		if err != nil {
			s.Invalid(unit.description(caseName(unit, c)), err)
			continue
		}

		instances := make(map[string]*script.Instance, len(artifact.Instances))
		for name, instance := range artifact.Instances {
			instances[name] = instance.Clone()
		}

		c.Run(&script.Context{
			Backend:    backend,
			Summary:    s,
			Instances:  instances,
			Group:      unit.Group,
			Mode:       unit.Mode,
			NamePrefix: caseName(unit, c),
		})
	}
}

func caseName(unit *Unit, c *script.Case) string {
	if c.Name == "" {
		return unit.Name
	}
	return unit.Name + "::" + c.Name
}
