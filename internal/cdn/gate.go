// Package cdn pushes revisioned artifacts to a remote object store.
//
// The Gate decides whether a sync happens at all and fans uploads out to a
// bounded set of workers. Uploaders implement the actual transfer.
package cdn

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/retry"
)

// Uploader stores content under key in the remote object store.
type Uploader interface {
	Upload(ctx context.Context, key string, content []byte) error
}

// Artifact is one file to upload. Path is relative to its class source
// directory, e.g. "vendor/app-9f3e.js" for dist/js/vendor/app-9f3e.js.
type Artifact struct {
	Path    string
	Content []byte
}

// Options tune a Gate.
type Options struct {
	Concurrency int
	Timeout     time.Duration // per upload call
	Policy      retry.Policy
	Recorder    metrics.Recorder
}

// Gate syncs artifacts when enabled and does nothing otherwise.
type Gate struct {
	enabled  bool
	uploader Uploader
	opts     Options
}

// NewGate returns a gate around up. A disabled gate never calls up.
func NewGate(enabled bool, up Uploader, opts Options) *Gate {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Policy == (retry.Policy{}) {
		opts.Policy = retry.DefaultPolicy()
	}
	return &Gate{enabled: enabled && up != nil, uploader: up, opts: opts}
}

// Disabled returns a gate that never uploads.
func Disabled() *Gate {
	return NewGate(false, nil, Options{})
}

// FromConfig builds the gate described by the cdn section of cfg.
func FromConfig(cfg *config.Config, rec metrics.Recorder) (*Gate, error) {
	if !cfg.CDN.Enable {
		return Disabled(), nil
	}
	up, err := NewUploader(cfg.CDN)
	if err != nil {
		return nil, err
	}
	return NewGate(true, up, Options{
		Concurrency: cfg.CDN.Concurrency,
		Timeout:     cfg.UploadTimeout(),
		Policy:      retry.FromConfig(cfg.CDN.Retry),
		Recorder:    rec,
	}), nil
}

// Enabled reports whether Sync uploads anything.
func (g *Gate) Enabled() bool { return g != nil && g.enabled }

// Key joins the class prefix and the class-relative path into an object key.
func Key(classPrefix, rel string) string {
	rel = strings.TrimLeft(rel, "/")
	classPrefix = strings.Trim(classPrefix, "/")
	if classPrefix == "" {
		return rel
	}
	return classPrefix + "/" + rel
}

// Sync uploads every artifact under classPrefix. Uploads run concurrently;
// the first failure cancels the remaining ones and is returned as an
// UploadError naming the path and key.
func (g *Gate) Sync(ctx context.Context, artifacts []Artifact, classPrefix string) error {
	if !g.Enabled() || len(artifacts) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	tasks := make(chan Artifact)
	workers := min(g.opts.Concurrency, len(artifacts))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range tasks {
				if ctx.Err() != nil {
					continue
				}
				if err := g.upload(ctx, a, classPrefix); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for _, a := range artifacts {
		select {
		case tasks <- a:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (g *Gate) upload(ctx context.Context, a Artifact, classPrefix string) error {
	key := Key(classPrefix, a.Path)
	start := time.Now()
	err := g.opts.Policy.Do(ctx, Retryable, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			g.opts.Recorder.IncUploadRetry(classPrefix)
			slog.Warn("Retrying upload", logfields.Key(key), logfields.Attempt(attempt))
		}
		callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
		return g.uploader.Upload(callCtx, key, a.Content)
	})
	g.opts.Recorder.ObserveUpload(classPrefix, time.Since(start), err == nil)
	if err == nil {
		slog.Debug("Uploaded artifact", logfields.Path(a.Path), logfields.Key(key))
		return nil
	}
	if ctx.Err() != nil && stdErrors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	b := errors.UploadError("upload failed").
		WithCause(err).
		WithPath(a.Path).
		WithContext("key", key)
	var se *StatusError
	if stdErrors.As(err, &se) {
		b = b.WithContext("status", se.StatusCode)
	}
	return b.Build()
}
