package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/pipeline"
	"git.home.luguber.info/inful/assetrev/internal/watch"
)

// WatchCmd implements the 'watch' command: an initial build followed by a
// full rebuild after every settled batch of source changes. CDN, notify and
// history settings are read once at startup; other config edits apply on the
// next rebuild.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before rebuilding" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if addr := cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, rt.registry); err != nil {
				slog.Error("Metrics listener failed", logfields.URL(addr), logfields.Error(err))
			}
		}()
	}

	configPath, _ := filepath.Abs(root.Config)
	current := cfg
	rebuild := func(ctx context.Context, changed []string) error {
		if slices.Contains(changed, configPath) {
			reloaded, err := config.Load(root.Config)
			if err != nil {
				slog.Error("Configuration reload failed, keeping previous", logfields.Path(root.Config), logfields.Error(err))
			} else {
				current = reloaded
				slog.Info("Configuration reloaded", logfields.Path(root.Config))
			}
		}
		p, err := pipeline.New(current, rt.options()...)
		if err != nil {
			return err
		}
		report, err := p.Run(ctx)
		fmt.Fprint(g.Out, report.Summary())
		rt.writeMetrics(current.Metrics.Textfile)
		return err
	}

	if err := rebuild(ctx, nil); err != nil && ctx.Err() == nil {
		slog.Error("Initial build failed", logfields.Error(err))
	}

	roots := make([]string, 0, len(asset.Classes)+1)
	for _, class := range asset.Classes {
		roots = append(roots, filepath.Join(cfg.SourceRoot, filepath.FromSlash(cfg.SourceDir(class))))
	}
	roots = append(roots, configPath)

	watcher, err := watch.New(roots, rebuild,
		watch.WithDebounce(w.Debounce),
		watch.WithIgnore(cfg.DistPath()))
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
