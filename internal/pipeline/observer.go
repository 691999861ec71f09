package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/eventstore"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
)

// Observer receives callbacks around stage execution and the run lifecycle.
// Stage callbacks arrive from concurrently running stages.
type Observer interface {
	OnRunStart(report *Report)
	OnStageStart(stage StageName)
	OnStageComplete(sr StageReport)
	OnRunComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*Report)          {}
func (NoopObserver) OnStageStart(StageName)      {}
func (NoopObserver) OnStageComplete(StageReport) {}
func (NoopObserver) OnRunComplete(*Report)       {}

// recorderObserver adapts metrics.Recorder into an Observer.
type recorderObserver struct{ rec metrics.Recorder }

func (recorderObserver) OnRunStart(*Report)     {}
func (recorderObserver) OnStageStart(StageName) {}

func (r recorderObserver) OnStageComplete(sr StageReport) {
	if sr.Result != StageResultSkipped {
		r.rec.ObserveStageDuration(string(sr.Stage), sr.Duration)
	}
	r.rec.IncStageResult(string(sr.Stage), metrics.ResultLabel(sr.Result))
}

func (r recorderObserver) OnRunComplete(report *Report) {
	r.rec.ObserveRunDuration(report.Duration())
	r.rec.IncRunOutcome(string(report.Outcome))
}

// historyObserver appends lifecycle events to the build history store.
// Store failures are logged and never affect the run.
type historyObserver struct {
	store eventstore.Store
	runID string
	src   eventstore.RunStartedPayload
}

func (h *historyObserver) append(e *eventstore.BaseEvent, err error) {
	if err != nil {
		slog.Warn("Cannot build history event", logfields.RunID(h.runID), logfields.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.Append(ctx, e); err != nil {
		slog.Warn("Cannot record history event", logfields.RunID(h.runID), slog.String("type", e.Type()), logfields.Error(err))
	}
}

func (h *historyObserver) OnRunStart(report *Report) {
	h.runID = report.RunID
	h.append(eventstore.NewRunStarted(report.RunID, h.src))
}

func (h *historyObserver) OnStageStart(stage StageName) {
	h.append(eventstore.NewStageStarted(h.runID, string(stage)))
}

func (h *historyObserver) OnStageComplete(sr StageReport) {
	p := eventstore.StagePayload{
		Stage:      string(sr.Stage),
		Files:      sr.Files,
		DurationMS: sr.Duration.Milliseconds(),
		Result:     string(sr.Result),
	}
	switch sr.Result {
	case StageResultSuccess:
		h.append(eventstore.NewStageCompleted(h.runID, p))
	case StageResultSkipped:
		// Skipped stages never started; the run summary covers them.
	default:
		if sr.Err != nil {
			p.Error = sr.Err.Error()
			p.Category = string(errors.GetCategory(sr.Err))
			if ce, ok := errors.AsClassified(sr.Err); ok {
				p.Path = ce.Path()
			}
		}
		h.append(eventstore.NewStageFailed(h.runID, p))
	}
}

func (h *historyObserver) OnRunComplete(report *Report) {
	p := eventstore.RunCompletedPayload{
		Outcome:     string(report.Outcome),
		DurationMS:  report.Duration().Milliseconds(),
		FailedStage: string(report.FailedStage),
	}
	if report.Err != nil {
		p.Error = report.Err.Error()
	}
	h.append(eventstore.NewRunCompleted(report.RunID, p))
}

// logObserver writes stage progress to slog.
type logObserver struct{ runID string }

func (l *logObserver) OnRunStart(report *Report) {
	l.runID = report.RunID
	slog.Info("Pipeline run started", logfields.RunID(report.RunID))
}

func (l *logObserver) OnStageStart(stage StageName) {
	slog.Debug("Stage started", logfields.RunID(l.runID), logfields.Stage(string(stage)))
}

func (l *logObserver) OnStageComplete(sr StageReport) {
	attrs := []any{
		logfields.RunID(l.runID),
		logfields.Stage(string(sr.Stage)),
		logfields.Result(string(sr.Result)),
		logfields.Files(sr.Files),
		logfields.DurationMS(float64(sr.Duration.Microseconds()) / 1000),
	}
	switch sr.Result {
	case StageResultSuccess:
		slog.Info("Stage completed", attrs...)
	case StageResultSkipped:
		slog.Debug("Stage skipped", attrs...)
	default:
		slog.Error("Stage failed", append(attrs, logfields.Error(sr.Err))...)
	}
}

func (l *logObserver) OnRunComplete(report *Report) {
	attrs := []any{
		logfields.RunID(report.RunID),
		logfields.Result(string(report.Outcome)),
		logfields.Files(report.Files()),
		logfields.DurationMS(float64(report.Duration().Microseconds()) / 1000),
	}
	if report.Outcome == OutcomeSuccess {
		slog.Info("Pipeline run completed", attrs...)
		return
	}
	slog.Error("Pipeline run failed", append(attrs, logfields.Stage(string(report.FailedStage)), logfields.Error(report.Err))...)
}

// observers fans callbacks out to several observers in order.
type observers []Observer

func (o observers) OnRunStart(r *Report) {
	for _, x := range o {
		x.OnRunStart(r)
	}
}

func (o observers) OnStageStart(s StageName) {
	for _, x := range o {
		x.OnStageStart(s)
	}
}

func (o observers) OnStageComplete(sr StageReport) {
	for _, x := range o {
		x.OnStageComplete(sr)
	}
}

func (o observers) OnRunComplete(r *Report) {
	for _, x := range o {
		x.OnRunComplete(r)
	}
}
