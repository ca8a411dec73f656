// Package summary collects test outcomes from concurrent workers and renders
// progress milestones and the final report.
package summary

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/crosstest-vm/crosstest/output"
)

// TestDescription identifies one executed input: the optional test group,
// the backend mode, and the fully qualified input name.
type TestDescription struct {
	Group *string
	Mode  string
	Name  string
}

// PassedVariant distinguishes what kind of input passed; deploy results
// additionally carry the contract size.
type PassedVariant int

const (
	VariantDeploy PassedVariant = iota
	VariantRuntime
	VariantSpecial
)

// OutcomeKind is the verdict of one input.
type OutcomeKind int

const (
	KindPassed OutcomeKind = iota
	KindFailed
	KindInvalid
	KindIgnored
)

// Outcome is the verdict plus its payload. Only the fields matching the
// kind are set.
type Outcome struct {
	Kind    OutcomeKind
	Variant PassedVariant

	Size   uint64
	Cycles uint64
	Ergs   uint64
	Gas    uint64

	Expected output.Output
	Found    output.Output
	Calldata []byte

	Err error
}

// Element is one recorded outcome.
type Element struct {
	Description TestDescription
	Outcome     Outcome
}

// Summary aggregates outcomes from concurrent workers behind one mutex.
type Summary struct {
	mu       sync.Mutex
	elements []Element

	verbose bool
	quiet   bool
	out     io.Writer

	passed  int
	failed  int
	invalid int
	ignored int
}

// New creates an empty summary. Verbose prints every passed input, quiet
// suppresses the milestone boxes.
func New(verbose, quiet bool) *Summary {
	return &Summary{
		verbose: verbose,
		quiet:   quiet,
		out:     os.Stdout,
	}
}

// SetOutput redirects the per-element lines and milestone boxes.
func (s *Summary) SetOutput(out io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
}

// PassedDeploy records a passed deploy input with its code size and
// counters.
func (s *Summary) PassedDeploy(test TestDescription, size, cycles, ergs, gas uint64) {
	s.push(Element{Description: test, Outcome: Outcome{
		Kind: KindPassed, Variant: VariantDeploy,
		Size: size, Cycles: cycles, Ergs: ergs, Gas: gas,
	}})
}

// PassedRuntime records a passed runtime input.
func (s *Summary) PassedRuntime(test TestDescription, cycles, ergs, gas uint64) {
	s.push(Element{Description: test, Outcome: Outcome{
		Kind: KindPassed, Variant: VariantRuntime,
		Cycles: cycles, Ergs: ergs, Gas: gas,
	}})
}

// PassedSpecial records a passed special input, like a storage-emptiness or
// balance check.
func (s *Summary) PassedSpecial(test TestDescription) {
	s.push(Element{Description: test, Outcome: Outcome{Kind: KindPassed, Variant: VariantSpecial}})
}

// Failed records an output mismatch.
func (s *Summary) Failed(test TestDescription, expected, found output.Output, calldata []byte) {
	s.push(Element{Description: test, Outcome: Outcome{
		Kind: KindFailed, Expected: expected, Found: found, Calldata: calldata,
	}})
}

// Invalid records an execution error.
func (s *Summary) Invalid(test TestDescription, err error) {
	s.push(Element{Description: test, Outcome: Outcome{Kind: KindInvalid, Err: err}})
}

// Ignored records a skipped input.
func (s *Summary) Ignored(test TestDescription) {
	s.push(Element{Description: test, Outcome: Outcome{Kind: KindIgnored}})
}

// IsSuccessful reports whether no element failed or was invalid.
func (s *Summary) IsSuccessful() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed == 0 && s.invalid == 0
}

// Counts returns the outcome counters.
func (s *Summary) Counts() (passed, failed, invalid, ignored int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed, s.failed, s.invalid, s.ignored
}

// Elements returns a snapshot of the recorded elements.
func (s *Summary) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Element{}, s.elements...)
}

func (s *Summary) push(element Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line := element.print(s.verbose); line != "" {
		fmt.Fprintln(s.out, line)
	}

	executed := true
	switch element.Outcome.Kind {
	case KindPassed:
		s.passed++
	case KindFailed:
		s.failed++
	case KindInvalid:
		s.invalid++
	case KindIgnored:
		s.ignored++
		executed = false
	}
	s.elements = append(s.elements, element)

	if executed && !s.quiet {
		milestone := 100_000
		if s.verbose {
			milestone = 1_000
		}
		if (s.passed+s.failed+s.invalid)%milestone == 0 {
			fmt.Fprint(s.out, s.box())
		}
	}
}

// Report prints the final milestone box.
func (s *Summary) Report() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiet {
		return
	}
	fmt.Fprint(s.out, s.box())
}

var (
	passedTag  = color.New(color.FgGreen).SprintfFunc()
	failedTag  = color.New(color.FgHiRed).SprintfFunc()
	invalidTag = color.New(color.FgRed).SprintfFunc()
	ignoredTag = color.New(color.FgHiBlack).SprintfFunc()
	detailTag  = color.New(color.FgHiWhite).SprintfFunc()
)

func (s *Summary) box() string {
	return fmt.Sprintf(
		"╔═══════════════════╡ INTEGRATION TESTING ╞════════════════════╗\n"+
			"║                                                              ║\n"+
			"║     %s                                   %s     ║\n"+
			"║     %s                                   %s     ║\n"+
			"║     %s                                   %s     ║\n"+
			"║     %s                                   %s     ║\n"+
			"║               %10d TESTS MILESTONE                     ║\n"+
			"╚══════════════════════════════════════════════════════════════╝\n",
		passedTag("%-7s", "PASSED"), passedTag("%-10d", s.passed),
		failedTag("%-7s", "FAILED"), failedTag("%-10d", s.failed),
		invalidTag("%-7s", "INVALID"), invalidTag("%-10d", s.invalid),
		ignoredTag("%-7s", "IGNORED"), ignoredTag("%-10d", s.ignored),
		s.passed+s.failed+s.invalid,
	)
}

// print renders the per-element line, or an empty string when the element is
// not worth a line at the given verbosity.
func (e Element) print(verbose bool) string {
	switch e.Outcome.Kind {
	case KindPassed:
		if !verbose {
			return ""
		}
	case KindIgnored:
		return ""
	}

	var tag, details string
	switch e.Outcome.Kind {
	case KindPassed:
		tag = passedTag("%7s", "PASSED")
		switch e.Outcome.Variant {
		case VariantDeploy:
			details = detailTag("(size %d, cycles %d, ergs %d, gas %d)",
				e.Outcome.Size, e.Outcome.Cycles, e.Outcome.Ergs, e.Outcome.Gas)
		case VariantRuntime:
			details = detailTag("(cycles %d, ergs %d, gas %d)",
				e.Outcome.Cycles, e.Outcome.Ergs, e.Outcome.Gas)
		}
	case KindFailed:
		tag = failedTag("%7s", "FAILED")
		details = fmt.Sprintf("(expected %v, found %v, calldata 0x%x)",
			e.Outcome.Expected, e.Outcome.Found, e.Outcome.Calldata)
	case KindInvalid:
		tag = invalidTag("%7s", "INVALID")
		details = e.Outcome.Err.Error()
	}

	return fmt.Sprintf("%s %s %s %s", detailTag("%-16s", e.Description.Mode), tag, e.Description.Name, details)
}
