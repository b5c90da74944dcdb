package types

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of one phase of a test
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Phase identifies which part of a test's lifecycle a report describes
type Phase string

const (
	// PhaseSetup is reported when a package's test binary starts
	PhaseSetup Phase = "setup"
	// PhaseCall is the execution of the test function itself
	PhaseCall Phase = "call"
	// PhaseTeardown is reported when a package's test binary exits
	PhaseTeardown Phase = "teardown"
)

// TestItem describes a test that is about to run
type TestItem struct {
	NodeID  string // e.g. "internal/foo::TestBar/sub_case"
	File    string // Source file declaring the top-level test, or the package dir
	Package string // Go import path
	Name    string // Full go test name including subtests
}

// TestReport captures the outcome of one phase of a test
type TestReport struct {
	NodeID   string
	Location string
	When     Phase
	Outcome  Outcome
	Duration time.Duration
	LongRepr string // Captured output, only populated for failures

	// WasXFail marks a tolerated failure: the test matched an xfail rule
	WasXFail    bool
	XFailReason string
}

// Passed reports whether the phase passed
func (r *TestReport) Passed() bool {
	return r.Outcome == OutcomePassed
}

// Failed reports whether the phase failed
func (r *TestReport) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Skipped reports whether the phase was skipped
func (r *TestReport) Skipped() bool {
	return r.Outcome == OutcomeSkipped
}

func (r *TestReport) String() string {
	s := fmt.Sprintf("%s [%s] %s (%s)", r.NodeID, r.When, r.Outcome, r.Duration)
	if r.WasXFail {
		s += " xfail"
	}
	return s
}

// RunSummary aggregates the reports of a whole run
type RunSummary struct {
	RunID          string
	Passed         int
	Failed         int
	Skipped        int
	XFailed        int
	PackagesFailed []string
	Duration       time.Duration
	Reports        []*TestReport // Call phase reports in completion order
}

// Total returns the number of call phase reports
func (s *RunSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// HasFailures reports whether any test or package failed
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0 || len(s.PackagesFailed) > 0
}

// Add folds a report into the summary
func (s *RunSummary) Add(r *TestReport) {
	switch r.When {
	case PhaseCall:
		s.Reports = append(s.Reports, r)
		if r.WasXFail {
			s.XFailed++
		}
		switch r.Outcome {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	case PhaseTeardown:
		if r.Outcome == OutcomeFailed {
			s.PackagesFailed = append(s.PackagesFailed, r.NodeID)
		}
	}
}

func (s *RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d passed, %d failed, %d skipped", s.Passed, s.Failed, s.Skipped)
	if s.XFailed > 0 {
		fmt.Fprintf(&b, " (%d xfail)", s.XFailed)
	}
	if len(s.PackagesFailed) > 0 {
		fmt.Fprintf(&b, ", failed packages: %s", strings.Join(s.PackagesFailed, ", "))
	}
	fmt.Fprintf(&b, " in %s", s.Duration.Round(time.Millisecond))
	return b.String()
}
