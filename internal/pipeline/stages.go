package pipeline

import (
	"context"
	stdErrors "errors"
	"fmt"
	"slices"
	"sort"
)

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names.
const (
	StageClean                   StageName = "clean"
	StageRevisionScripts         StageName = "revision-scripts"
	StageRevisionImages          StageName = "revision-images"
	StageRevisionFonts           StageName = "revision-fonts"
	StageCompileStyles           StageName = "compile-styles"
	StageRewriteStyleReferences  StageName = "rewrite-style-references"
	StageRewriteMarkupReferences StageName = "rewrite-markup-references"
)

// Stages lists every stage in declaration order.
var Stages = []StageName{
	StageClean,
	StageRevisionScripts,
	StageRevisionImages,
	StageRevisionFonts,
	StageCompileStyles,
	StageRewriteStyleReferences,
	StageRewriteMarkupReferences,
}

// dependencies is the fixed stage graph: stage -> stages that must succeed first.
var dependencies = map[StageName][]StageName{
	StageClean:                  nil,
	StageRevisionScripts:        {StageClean},
	StageRevisionImages:         {StageClean},
	StageRevisionFonts:          {StageClean},
	StageCompileStyles:          {StageClean},
	StageRewriteStyleReferences: {StageRevisionImages, StageRevisionFonts, StageCompileStyles},
	StageRewriteMarkupReferences: {
		StageRevisionScripts,
		StageRevisionImages,
		StageRevisionFonts,
		StageCompileStyles,
		StageRewriteStyleReferences,
	},
}

// Graph returns a copy of the stage dependency graph.
func Graph() map[StageName][]StageName {
	out := make(map[StageName][]StageName, len(dependencies))
	for stage, deps := range dependencies {
		out[stage] = slices.Clone(deps)
	}
	return out
}

// Dependencies returns the declared predecessors of stage.
func Dependencies(stage StageName) []StageName {
	return slices.Clone(dependencies[stage])
}

// Order returns a deterministic topological order of graph (ties broken by
// declaration order in Stages). A cycle or unknown dependency is an error.
func Order(graph map[StageName][]StageName) ([]StageName, error) {
	inDegree := make(map[StageName]int, len(graph))
	dependents := make(map[StageName][]StageName, len(graph))
	for stage, deps := range graph {
		inDegree[stage] += 0
		for _, dep := range deps {
			if _, ok := graph[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on unknown stage %s", stage, dep)
			}
			inDegree[stage]++
			dependents[dep] = append(dependents[dep], stage)
		}
	}

	rank := func(s StageName) int {
		if i := slices.Index(Stages, s); i >= 0 {
			return i
		}
		return len(Stages)
	}
	byRank := func(list []StageName) {
		sort.SliceStable(list, func(i, j int) bool {
			if rank(list[i]) != rank(list[j]) {
				return rank(list[i]) < rank(list[j])
			}
			return list[i] < list[j]
		})
	}

	var queue []StageName
	for stage, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, stage)
		}
	}
	byRank(queue)

	order := make([]StageName, 0, len(graph))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		next := dependents[current]
		byRank(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
		byRank(queue)
	}
	if len(order) != len(graph) {
		return nil, stdErrors.New("circular dependency detected among stages")
	}
	return order, nil
}

// StageResult captures the outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// StageErrorKind classifies a stage failure.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// ExitCanceled is the process exit code of a canceled run.
const ExitCanceled = 130

var exitCodes = map[StageName]int{
	StageClean:                   20,
	StageRevisionScripts:         21,
	StageRevisionImages:          22,
	StageRevisionFonts:           23,
	StageCompileStyles:           24,
	StageRewriteStyleReferences:  25,
	StageRewriteMarkupReferences: 26,
}

// StageError names the stage that stopped the run and wraps the cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ExitCode identifies the failed stage to the calling shell.
func (e *StageError) ExitCode() int {
	if e.Kind == StageErrorCanceled {
		return ExitCanceled
	}
	if code, ok := exitCodes[e.Stage]; ok {
		return code
	}
	return 1
}

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// classify turns a stage function's error into a StageError.
func classify(ctx context.Context, stage StageName, err error) *StageError {
	var se *StageError
	if stdErrors.As(err, &se) {
		return se
	}
	if ctx.Err() != nil && (stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded)) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}
