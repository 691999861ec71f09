package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/cdn"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
	"git.home.luguber.info/inful/assetrev/internal/rewrite"
	"git.home.luguber.info/inful/assetrev/internal/transform"
)

// stageCompileStyles compiles every stylesheet to CSS, fingerprints the
// compiled text and stages it under css-tmp until references are rewritten.
// Partials (base name starting with "_") are only compiled as imports.
func stageCompileStyles(ctx context.Context, r *run) (int, error) {
	dir := r.plan.SourceDir(asset.ClassStyle)
	found, err := asset.Discover(ctx, r.plan.SourceRoot, dir, r.compiler.Extensions())
	if err != nil {
		return 0, err
	}
	files := found[:0]
	sources := make(map[string][]string)
	for _, rel := range found {
		if !strings.HasPrefix(path.Base(rel), "_") {
			files = append(files, rel)
			out := transform.OutputPath(rel)
			sources[out] = append(sources[out], rel)
		}
	}
	// Discover returns sorted paths, so the first clash reported is stable.
	for _, rel := range files {
		if srcs := sources[transform.OutputPath(rel)]; len(srcs) > 1 {
			return 0, errors.TransformError(fmt.Sprintf("sources %s compile to the same stylesheet", strings.Join(srcs, ", "))).
				WithPath(transform.OutputPath(rel)).
				WithContext("sources", srcs).
				Build()
		}
	}

	rec := manifest.NewRecorder()
	err = forEach(ctx, r.plan.Concurrency, files, func(ctx context.Context, rel string) error {
		a, err := asset.Read(r.plan.SourceRoot, rel, asset.ClassStyle)
		if err != nil {
			return err
		}
		css, err := r.compiler.Compile(ctx, r.plan.SourceRoot, rel, a.Content)
		if err != nil {
			return err
		}
		out := transform.OutputPath(rel)
		_, revisioned := r.engine.Apply(out, css)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFile(r.plan.StagingPath(revisioned), css); err != nil {
			return err
		}
		rec.Record(out, revisioned, asset.ClassStyle)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := manifest.Write(r.plan.DistDir, asset.ClassStyle, rec.Manifest(asset.ClassStyle)); err != nil {
		return len(files), err
	}
	r.recorder.AddFiles(string(asset.ClassStyle), len(files))
	return len(files), nil
}

// stageRewriteStyleReferences rewrites image, font and stylesheet references
// in the staged styles, compresses them into their final location and removes the
// staging directory.
func stageRewriteStyleReferences(ctx context.Context, r *run) (int, error) {
	refs, err := manifest.LoadAll(r.plan.DistDir, asset.ClassImage, asset.ClassFont)
	if err != nil {
		return 0, err
	}
	styles, err := manifest.Load(r.plan.DistDir, asset.ClassStyle)
	if err != nil {
		return 0, err
	}
	// Styles may @import each other; later manifests win on merge.
	rw := rewrite.New(manifest.Merge(refs, styles), r.plan.StyleRules)
	dir := r.plan.SourceDir(asset.ClassStyle)
	records := styles.Records()

	var (
		mu        sync.Mutex
		total     rewrite.Stats
		artifacts = make([]cdn.Artifact, 0, len(records))
	)
	err = forEach(ctx, r.plan.Concurrency, records, func(ctx context.Context, rec manifest.RevisionRecord) error {
		staged := r.plan.StagingPath(rec.Revisioned)
		src, err := os.ReadFile(staged)
		if err != nil {
			return errors.ReadError("cannot read staged stylesheet").WithCause(err).WithPath(staged).Build()
		}
		out, st := rw.RewriteCSS(rec.Original, src)
		if r.plan.Config.Minify.CompressStyles() {
			if out, err = r.minifier.Style(rec.Original, out); err != nil {
				return err
			}
		}
		if err := r.write(ctx, rec.Revisioned, out, true); err != nil {
			return err
		}
		mu.Lock()
		total.Add(st)
		artifacts = append(artifacts, cdn.Artifact{Path: asset.RelativeTo(rec.Revisioned, dir), Content: out})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := r.gate.Sync(ctx, artifacts, r.plan.Config.Prefix(asset.ClassStyle)); err != nil {
		return len(records), err
	}
	staging := filepath.Join(r.plan.DistDir, StagingDir)
	if err := os.RemoveAll(staging); err != nil {
		return len(records), errors.WriteError("cannot remove staging directory").WithCause(err).WithPath(staging).Build()
	}
	r.recorder.AddReferences(string(asset.ClassStyle), total.Rewritten, total.Unmapped)
	r.announce(ctx, asset.ClassStyle, records)
	return len(records), nil
}
