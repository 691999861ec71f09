// Package pipeline runs the fixed asset build: it cleans the distribution
// tree, revisions scripts, images, fonts and styles, then rewrites the
// references in styles and markup to the revisioned names.
//
// The stage graph is data (see Graph); the scheduler starts each stage once
// all of its predecessors succeeded and cancels the run on the first failure.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetrev/internal/cdn"
	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/eventstore"
	"git.home.luguber.info/inful/assetrev/internal/fingerprint"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/notify"
	"git.home.luguber.info/inful/assetrev/internal/transform"
)

// stageFunc executes one stage and reports how many files it handled.
type stageFunc func(ctx context.Context, r *run) (int, error)

// Pipeline orchestrates one or more runs over an immutable Plan.
type Pipeline struct {
	plan      *Plan
	engine    *fingerprint.Engine
	minifier  *transform.Minifier
	compiler  *transform.StyleCompiler
	gate      *cdn.Gate
	notifier  notify.Notifier
	recorder  metrics.Recorder
	history   eventstore.Store
	observers []Observer
	stages    map[StageName]stageFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGate sets the CDN sync gate. The default gate is disabled.
func WithGate(g *cdn.Gate) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.gate = g
		}
	}
}

// WithNotifier sets the content-changed notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// WithHistory records run lifecycle events in store.
func WithHistory(store eventstore.Store) Option {
	return func(p *Pipeline) { p.history = store }
}

// WithObserver adds an observer notified after the built-in ones.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// New builds a pipeline for cfg.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	plan, err := NewPlan(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		plan:     plan,
		engine:   fingerprint.New(cfg.Fingerprint.Length),
		minifier: transform.NewMinifier(),
		compiler: transform.NewStyleCompiler(cfg.Styles.Compiler, cfg.Styles.CompilerExtensions),
		gate:     cdn.Disabled(),
		notifier: notify.Noop{},
		recorder: metrics.NoopRecorder{},
		stages: map[StageName]stageFunc{
			StageClean:                   stageClean,
			StageRevisionScripts:         stageRevisionScripts,
			StageRevisionImages:          stageRevisionImages,
			StageRevisionFonts:           stageRevisionFonts,
			StageCompileStyles:           stageCompileStyles,
			StageRewriteStyleReferences:  stageRewriteStyleReferences,
			StageRewriteMarkupReferences: stageRewriteMarkupReferences,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan returns the resolved plan.
func (p *Pipeline) Plan() *Plan { return p.plan }

// run is the per-invocation state shared by the stages of one run.
type run struct {
	*Pipeline
	id string
}

func (p *Pipeline) runObservers() observers {
	obs := observers{&logObserver{}, recorderObserver{rec: p.recorder}}
	if p.history != nil {
		obs = append(obs, &historyObserver{
			store: p.history,
			src: eventstore.RunStartedPayload{
				SourceRoot: p.plan.SourceRoot,
				DistDir:    p.plan.DistDir,
				CDN:        p.gate.Enabled(),
				ConfigHash: p.plan.Config.Snapshot(),
			},
		})
	}
	return append(obs, p.observers...)
}

// Run executes every stage once. It returns the report and, when a stage
// failed or the run was canceled, a *StageError naming that stage.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	r := &run{Pipeline: p, id: uuid.NewString()}
	report := newReport(r.id)
	obs := p.runObservers()
	obs.OnRunStart(report)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		failure *StageError
		results = make(map[StageName]StageReport, len(Stages))
		done    = make(map[StageName]chan struct{}, len(Stages))
	)
	for _, stage := range Stages {
		done[stage] = make(chan struct{})
	}

	for _, stage := range Stages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[stage])
			for _, dep := range dependencies[stage] {
				<-done[dep]
			}

			mu.Lock()
			ready := ctx.Err() == nil
			for _, dep := range dependencies[stage] {
				if results[dep].Result != StageResultSuccess {
					ready = false
				}
			}
			mu.Unlock()

			if !ready {
				sr := StageReport{Stage: stage, Result: StageResultSkipped}
				mu.Lock()
				results[stage] = sr
				mu.Unlock()
				obs.OnStageComplete(sr)
				return
			}

			obs.OnStageStart(stage)
			start := time.Now()
			files, err := p.stages[stage](ctx, r)
			sr := StageReport{Stage: stage, Result: StageResultSuccess, Start: start, Duration: time.Since(start), Files: files}
			if err != nil {
				se := classify(ctx, stage, err)
				sr.Err = se
				sr.Result = StageResultFatal
				if se.Kind == StageErrorCanceled {
					sr.Result = StageResultCanceled
				}
				mu.Lock()
				if failure == nil {
					failure = se
					cancel()
				}
				mu.Unlock()
			}
			mu.Lock()
			results[stage] = sr
			mu.Unlock()
			obs.OnStageComplete(sr)
		}()
	}
	wg.Wait()

	if failure == nil && ctx.Err() != nil {
		// The caller canceled before every stage could start.
		for _, stage := range Stages {
			if results[stage].Result != StageResultSuccess {
				failure = newCanceledStageError(stage, ctx.Err())
				break
			}
		}
	}

	report.Stages = make([]StageReport, 0, len(Stages))
	for _, stage := range Stages {
		report.Stages = append(report.Stages, results[stage])
	}
	report.finish(failure)
	obs.OnRunComplete(report)

	if failure != nil {
		return report, failure
	}
	return report, nil
}
