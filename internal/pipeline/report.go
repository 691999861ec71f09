package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the final result of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// StageReport records what happened to one stage.
type StageReport struct {
	Stage    StageName
	Result   StageResult
	Start    time.Time
	Duration time.Duration
	Files    int
	Err      error
}

// Report captures one pipeline run.
type Report struct {
	RunID       string
	Start       time.Time
	End         time.Time
	Stages      []StageReport // in declaration order
	FailedStage StageName
	Outcome     Outcome
	Err         error
}

func newReport(runID string) *Report {
	return &Report{RunID: runID, Start: time.Now()}
}

// Stage returns the report of the named stage.
func (r *Report) Stage(name StageName) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Files sums the files handled by every stage.
func (r *Report) Files() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Files
	}
	return n
}

// finish derives the outcome from the recorded stage failure.
func (r *Report) finish(failure *StageError) {
	r.End = time.Now()
	switch {
	case failure == nil:
		r.Outcome = OutcomeSuccess
	case failure.Kind == StageErrorCanceled:
		r.Outcome = OutcomeCanceled
		r.FailedStage = failure.Stage
		r.Err = failure
	default:
		r.Outcome = OutcomeFailed
		r.FailedStage = failure.Stage
		r.Err = failure
	}
}

// Summary renders a human-readable table of the run.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s in %s\n", r.RunID, r.Outcome, r.Duration().Round(time.Millisecond))
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "  %-27s %-8s %5d files %8s", s.Stage, s.Result, s.Files, s.Duration.Round(time.Millisecond))
		if s.Err != nil && s.Result != StageResultSkipped {
			fmt.Fprintf(&b, "  %v", s.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
