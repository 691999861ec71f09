package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// Recorder defines observability hooks for pipeline runs, stages and uploads.
// All methods must be safe for nil receivers when using the NoopRecorder
// (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
	AddFiles(class string, n int)
	AddReferences(class string, rewritten, unmapped int)
	ObserveUpload(prefix string, d time.Duration, success bool)
	IncUploadRetry(prefix string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)        {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                {}
func (NoopRecorder) IncRunOutcome(string)                              {}
func (NoopRecorder) AddFiles(string, int)                              {}
func (NoopRecorder) AddReferences(string, int, int)                    {}
func (NoopRecorder) ObserveUpload(string, time.Duration, bool)         {}
func (NoopRecorder) IncUploadRetry(string)                             {}
