package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
	"git.home.luguber.info/inful/assetrev/internal/notify"
	"git.home.luguber.info/inful/assetrev/internal/transform"
)

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WriteError("cannot create output directory").WithCause(err).WithPath(filepath.Dir(path)).Build()
	}
	// #nosec G306 -- published assets are world-readable
	if err := os.WriteFile(path, data, transform.PublicFileMode); err != nil {
		return errors.WriteError("cannot write output").WithCause(err).WithPath(path).Build()
	}
	return nil
}

// write stores a final artifact at the dist-relative path rel, plus its
// precompressed siblings when sidecars is set.
func (r *run) write(ctx context.Context, rel string, data []byte, sidecars bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := r.plan.DistPath(rel)
	if err := writeFile(target, data); err != nil {
		return err
	}
	if sidecars && len(r.plan.Precompress) > 0 {
		if _, err := transform.WriteSidecars(target, data, r.plan.Precompress); err != nil {
			return err
		}
	}
	return nil
}

// announce publishes one content-changed notification per record. Failures
// are logged and never fail the stage.
func (r *run) announce(ctx context.Context, class asset.Class, records []manifest.RevisionRecord) {
	for _, rec := range records {
		c := notify.Change{
			RunID:      r.id,
			Class:      string(class),
			Path:       rec.Original,
			Revisioned: rec.Revisioned,
			Timestamp:  time.Now().UTC(),
		}
		if err := r.notifier.ContentChanged(ctx, c); err != nil {
			slog.Warn("Content-changed notification failed",
				logfields.RunID(r.id),
				logfields.Class(string(class)),
				logfields.Path(rec.Original),
				logfields.Error(err))
		}
	}
}
