package pipeline

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
	"git.home.luguber.info/inful/assetrev/internal/rewrite"
)

var markupExtensions = []string{".html", ".htm"}

// stageRewriteMarkupReferences rewrites every markup file against the merged
// script, image, font and style manifests and writes it to the dist root.
func stageRewriteMarkupReferences(ctx context.Context, r *run) (int, error) {
	merged, err := manifest.LoadAll(r.plan.DistDir, asset.ClassScript, asset.ClassImage, asset.ClassFont, asset.ClassStyle)
	if err != nil {
		return 0, err
	}
	rw := rewrite.New(merged, nil)
	dir := r.plan.SourceDir(asset.ClassMarkup)
	files, err := asset.Discover(ctx, r.plan.SourceRoot, dir, markupExtensions)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		total   rewrite.Stats
		records = make([]manifest.RevisionRecord, 0, len(files))
	)
	err = forEach(ctx, r.plan.Concurrency, files, func(ctx context.Context, rel string) error {
		a, err := asset.Read(r.plan.SourceRoot, rel, asset.ClassMarkup)
		if err != nil {
			return err
		}
		out := asset.RelativeTo(rel, dir)
		content, st := rw.RewriteMarkup(out, a.Content)
		if r.plan.Config.Minify.MinifyMarkup() {
			if content, err = r.minifier.Markup(rel, content); err != nil {
				return err
			}
		}
		if err := r.write(ctx, out, content, true); err != nil {
			return err
		}
		mu.Lock()
		total.Add(st)
		records = append(records, manifest.RevisionRecord{Original: rel, Revisioned: out})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.recorder.AddFiles(string(asset.ClassMarkup), len(files))
	r.recorder.AddReferences(string(asset.ClassMarkup), total.Rewritten, total.Unmapped)
	r.announce(ctx, asset.ClassMarkup, records)
	return len(files), nil
}
