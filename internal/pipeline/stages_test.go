package pipeline

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraphShape(t *testing.T) {
	want := map[StageName][]StageName{
		StageClean:                  nil,
		StageRevisionScripts:        {StageClean},
		StageRevisionImages:         {StageClean},
		StageRevisionFonts:          {StageClean},
		StageCompileStyles:          {StageClean},
		StageRewriteStyleReferences: {StageRevisionImages, StageRevisionFonts, StageCompileStyles},
		StageRewriteMarkupReferences: {
			StageRevisionScripts, StageRevisionImages, StageRevisionFonts,
			StageCompileStyles, StageRewriteStyleReferences,
		},
	}
	require.Equal(t, want, Graph())
	require.Len(t, Stages, len(want))

	// Graph returns a copy.
	g := Graph()
	g[StageClean] = append(g[StageClean], StageCompileStyles)
	require.Empty(t, Dependencies(StageClean))
}

func TestOrderIsDeterministic(t *testing.T) {
	order, err := Order(Graph())
	require.NoError(t, err)
	require.Equal(t, Stages, order)
}

func TestOrderRejectsCycles(t *testing.T) {
	_, err := Order(map[StageName][]StageName{
		"a": {"b"},
		"b": {"a"},
	})
	require.Error(t, err)

	_, err = Order(map[StageName][]StageName{"a": {"missing"}})
	require.ErrorContains(t, err, "unknown stage")
}

func TestStageErrorExitCodes(t *testing.T) {
	cases := map[StageName]int{
		StageClean:                   20,
		StageRevisionScripts:         21,
		StageRevisionImages:          22,
		StageRevisionFonts:           23,
		StageCompileStyles:           24,
		StageRewriteStyleReferences:  25,
		StageRewriteMarkupReferences: 26,
	}
	for stage, code := range cases {
		require.Equal(t, code, newFatalStageError(stage, stdErrors.New("x")).ExitCode(), stage)
	}
	require.Equal(t, ExitCanceled, newCanceledStageError(StageClean, context.Canceled).ExitCode())
	require.Equal(t, 1, newFatalStageError("unknown", stdErrors.New("x")).ExitCode())
}

func TestClassify(t *testing.T) {
	cause := stdErrors.New("disk full")
	se := classify(context.Background(), StageRevisionFonts, cause)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.ErrorIs(t, se, cause)
	require.Contains(t, se.Error(), "revision-fonts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	se = classify(ctx, StageRevisionFonts, context.Canceled)
	require.Equal(t, StageErrorCanceled, se.Kind)

	// A stage that already classified itself keeps its error.
	inner := newFatalStageError(StageClean, cause)
	require.Same(t, inner, classify(ctx, StageRevisionFonts, inner))
}
