package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted     = "run_started"
	TypeStageStarted   = "stage_started"
	TypeStageCompleted = "stage_completed"
	TypeStageFailed    = "stage_failed"
	TypeRunCompleted   = "run_completed"
)

// RunStartedPayload describes the run's inputs.
type RunStartedPayload struct {
	SourceRoot string `json:"source_root"`
	DistDir    string `json:"dist_dir"`
	CDN        bool   `json:"cdn"`
	ConfigHash string `json:"config_hash,omitempty"`
}

// StagePayload is shared by the stage lifecycle events.
type StagePayload struct {
	Stage      string `json:"stage"`
	Files      int    `json:"files,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	Category   string `json:"category,omitempty"`
	Path       string `json:"path,omitempty"`
}

// RunCompletedPayload summarizes a finished run.
type RunCompletedPayload struct {
	Outcome     string `json:"outcome"`
	DurationMS  int64  `json:"duration_ms"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newEvent(runID, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.InternalError("failed to marshal event payload").
			WithCause(err).
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// NewRunStarted creates a run_started event.
func NewRunStarted(runID string, p RunStartedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunStarted, p)
}

// NewStageStarted creates a stage_started event.
func NewStageStarted(runID, stage string) (*BaseEvent, error) {
	return newEvent(runID, TypeStageStarted, StagePayload{Stage: stage})
}

// NewStageCompleted creates a stage_completed event.
func NewStageCompleted(runID string, p StagePayload) (*BaseEvent, error) {
	return newEvent(runID, TypeStageCompleted, p)
}

// NewStageFailed creates a stage_failed event.
func NewStageFailed(runID string, p StagePayload) (*BaseEvent, error) {
	return newEvent(runID, TypeStageFailed, p)
}

// NewRunCompleted creates a run_completed event.
func NewRunCompleted(runID string, p RunCompletedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunCompleted, p)
}
