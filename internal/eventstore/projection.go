// Package eventstore records pipeline runs as an append-only event log in
// SQLite and projects it into run summaries for the history command.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

const (
	runStatusRunning = "running"
)

// StageSummary is the last known state of one stage within a run.
type StageSummary struct {
	Stage    string        `json:"stage"`
	Result   string        `json:"result"`
	Files    int           `json:"files"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunSummary is a read model of one run reconstructed from its events.
type RunSummary struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"` // running, success, failed, canceled
	StartedAt   time.Time      `json:"started_at"`
	ConfigHash  string         `json:"config_hash,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
	FailedStage string         `json:"failed_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	Files       int            `json:"files"`
	Stages      []StageSummary `json:"stages,omitempty"`
}

// Project folds events (in insertion order) into run summaries, newest first.
func Project(events []Event) []RunSummary {
	runs := make(map[string]*RunSummary)
	var order []string
	stageIndex := make(map[string]map[string]int)

	for _, event := range events {
		runID := event.RunID()
		if runID == "" {
			continue
		}
		summary, ok := runs[runID]
		if !ok {
			summary = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: event.Timestamp()}
			runs[runID] = summary
			order = append(order, runID)
			stageIndex[runID] = make(map[string]int)
		}
		stage := func(name string) *StageSummary {
			i, ok := stageIndex[runID][name]
			if !ok {
				summary.Stages = append(summary.Stages, StageSummary{Stage: name, Result: runStatusRunning})
				i = len(summary.Stages) - 1
				stageIndex[runID][name] = i
			}
			return &summary.Stages[i]
		}

		switch event.Type() {
		case TypeRunStarted:
			summary.StartedAt = event.Timestamp()
			var p RunStartedPayload
			if err := json.Unmarshal(event.Payload(), &p); err == nil {
				summary.ConfigHash = p.ConfigHash
			}
		case TypeStageStarted, TypeStageCompleted, TypeStageFailed:
			var p StagePayload
			if err := json.Unmarshal(event.Payload(), &p); err != nil || p.Stage == "" {
				continue
			}
			st := stage(p.Stage)
			switch event.Type() {
			case TypeStageCompleted:
				st.Result = p.Result
				if st.Result == "" {
					st.Result = "success"
				}
				st.Files = p.Files
				st.Duration = time.Duration(p.DurationMS) * time.Millisecond
				summary.Files += p.Files
			case TypeStageFailed:
				st.Result = p.Result
				if st.Result == "" {
					st.Result = "fatal"
				}
				st.Error = p.Error
				st.Duration = time.Duration(p.DurationMS) * time.Millisecond
			}
		case TypeRunCompleted:
			var p RunCompletedPayload
			if err := json.Unmarshal(event.Payload(), &p); err != nil {
				continue
			}
			done := event.Timestamp()
			summary.CompletedAt = &done
			summary.Status = p.Outcome
			summary.Duration = time.Duration(p.DurationMS) * time.Millisecond
			summary.FailedStage = p.FailedStage
			summary.Error = p.Error
		}
	}

	out := make([]RunSummary, 0, len(runs))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *runs[order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Recent returns up to limit run summaries, newest first. limit <= 0 means all.
func Recent(ctx context.Context, store Store, limit int) ([]RunSummary, error) {
	events, err := store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return nil, err
	}
	runs := Project(events)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
