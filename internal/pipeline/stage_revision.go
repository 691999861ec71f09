package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/cdn"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
)

// classRevision describes how one class is revisioned.
type classRevision struct {
	class     asset.Class
	exts      []string                                      // nil keeps every file
	transform func(path string, src []byte) ([]byte, error) // applied before fingerprinting
	sidecars  bool
	announce  bool
}

func stageRevisionScripts(ctx context.Context, r *run) (int, error) {
	job := classRevision{class: asset.ClassScript, exts: []string{".js"}, sidecars: true, announce: true}
	if r.plan.Config.Minify.MinifyScripts() {
		job.transform = r.minifier.Script
	}
	return r.revision(ctx, job)
}

func stageRevisionImages(ctx context.Context, r *run) (int, error) {
	return r.revision(ctx, classRevision{class: asset.ClassImage})
}

func stageRevisionFonts(ctx context.Context, r *run) (int, error) {
	return r.revision(ctx, classRevision{class: asset.ClassFont})
}

// revision fingerprints every file of a class, writes it under its
// revisioned name, syncs the results and finally writes the class manifest.
func (r *run) revision(ctx context.Context, job classRevision) (int, error) {
	dir := r.plan.SourceDir(job.class)
	files, err := asset.Discover(ctx, r.plan.SourceRoot, dir, job.exts)
	if err != nil {
		return 0, err
	}

	rec := manifest.NewRecorder()
	var (
		mu        sync.Mutex
		artifacts = make([]cdn.Artifact, 0, len(files))
	)
	err = forEach(ctx, r.plan.Concurrency, files, func(ctx context.Context, rel string) error {
		a, err := asset.Read(r.plan.SourceRoot, rel, job.class)
		if err != nil {
			return err
		}
		content := a.Content
		if job.transform != nil {
			if content, err = job.transform(rel, content); err != nil {
				return err
			}
		}
		_, revisioned := r.engine.Apply(rel, content)
		if err := r.write(ctx, revisioned, content, job.sidecars); err != nil {
			return err
		}
		rec.Record(rel, revisioned, job.class)

		mu.Lock()
		artifacts = append(artifacts, cdn.Artifact{Path: asset.RelativeTo(revisioned, dir), Content: content})
		mu.Unlock()
		slog.Debug("Revisioned asset", logfields.Class(string(job.class)), logfields.Path(rel), logfields.Revisioned(revisioned))
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := r.gate.Sync(ctx, artifacts, r.plan.Config.Prefix(job.class)); err != nil {
		return len(files), err
	}
	m := rec.Manifest(job.class)
	if _, err := manifest.Write(r.plan.DistDir, job.class, m); err != nil {
		return len(files), err
	}
	r.recorder.AddFiles(string(job.class), len(files))
	if job.announce {
		r.announce(ctx, job.class, m.Records())
	}
	return len(files), nil
}
