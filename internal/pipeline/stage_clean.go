package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// stageClean removes the distribution tree and recreates it empty. It refuses
// to remove the filesystem root, the source root or any ancestor of it.
func stageClean(ctx context.Context, r *run) (int, error) {
	return 0, Clean(ctx, r.plan)
}

// Clean removes plan.DistDir.
func Clean(ctx context.Context, plan *Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dist := filepath.Clean(plan.DistDir)
	if dist == filepath.Dir(dist) {
		return errors.ValidationError("refusing to remove filesystem root").WithPath(dist).Build()
	}
	if rel, err := filepath.Rel(dist, plan.SourceRoot); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.ValidationError("refusing to remove a directory containing the source root").
			WithPath(dist).
			WithContext("source_root", plan.SourceRoot).
			Build()
	}
	if err := os.RemoveAll(dist); err != nil {
		return errors.WriteError("cannot remove dist directory").WithCause(err).WithPath(dist).Build()
	}
	if err := os.MkdirAll(dist, 0o750); err != nil {
		return errors.WriteError("cannot create dist directory").WithCause(err).WithPath(dist).Build()
	}
	return nil
}
