package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func appendAll(t *testing.T, store Store, events ...*BaseEvent) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, store.Append(t.Context(), e))
	}
}

func must(t *testing.T) func(*BaseEvent, error) *BaseEvent {
	return func(e *BaseEvent, err error) *BaseEvent {
		t.Helper()
		require.NoError(t, err)
		return e
	}
}

func TestRecentProjectsRuns(t *testing.T) {
	store := newTestStore(t)
	m := must(t)
	start := time.Now().Add(-time.Minute)

	first := m(NewRunStarted("first", RunStartedPayload{SourceRoot: ".", DistDir: "dist", ConfigHash: "abc123"}))
	first.EventTimestamp = start
	appendAll(t, store,
		first,
		m(NewStageStarted("first", "clean")),
		m(NewStageCompleted("first", StagePayload{Stage: "clean", DurationMS: 3})),
		m(NewStageStarted("first", "revision-scripts")),
		m(NewStageCompleted("first", StagePayload{Stage: "revision-scripts", Files: 2, DurationMS: 10})),
		m(NewRunCompleted("first", RunCompletedPayload{Outcome: "success", DurationMS: 20})),
	)

	second := m(NewRunStarted("second", RunStartedPayload{}))
	second.EventTimestamp = start.Add(30 * time.Second)
	appendAll(t, store,
		second,
		m(NewStageStarted("second", "compile-styles")),
		m(NewStageFailed("second", StagePayload{Stage: "compile-styles", Error: "malformed stylesheet", Category: "transform", Path: "css/a.css"})),
		m(NewRunCompleted("second", RunCompletedPayload{Outcome: "failed", FailedStage: "compile-styles", Error: "malformed stylesheet"})),
	)

	runs, err := Recent(t.Context(), store, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, "second", runs[0].RunID)
	require.Equal(t, "failed", runs[0].Status)
	require.Equal(t, "compile-styles", runs[0].FailedStage)
	require.Equal(t, []StageSummary{{Stage: "compile-styles", Result: "fatal", Error: "malformed stylesheet"}}, runs[0].Stages)

	require.Equal(t, "first", runs[1].RunID)
	require.Equal(t, "success", runs[1].Status)
	require.Equal(t, 2, runs[1].Files)
	require.Len(t, runs[1].Stages, 2)
	require.Equal(t, 10*time.Millisecond, runs[1].Stages[1].Duration)
	require.NotNil(t, runs[1].CompletedAt)
	require.Equal(t, "abc123", runs[1].ConfigHash)

	limited, err := Recent(t.Context(), store, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestProjectRunningRun(t *testing.T) {
	runs := Project([]Event{
		&BaseEvent{EventRunID: "r", EventType: TypeRunStarted, EventTimestamp: time.Now(), EventPayload: []byte("{}")},
		&BaseEvent{EventRunID: "r", EventType: TypeStageStarted, EventPayload: []byte(`{"stage":"clean"}`)},
		&BaseEvent{EventRunID: "", EventType: TypeRunStarted},
	})
	require.Len(t, runs, 1)
	require.Equal(t, "running", runs[0].Status)
	require.Equal(t, "running", runs[0].Stages[0].Result)
	require.Nil(t, runs[0].CompletedAt)
}
