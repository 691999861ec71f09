package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetrev/internal/cdn"
	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/eventstore"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/notify"
	"git.home.luguber.info/inful/assetrev/internal/pipeline"
)

// runtime holds the long-lived collaborators of a pipeline: metrics,
// the CDN gate, the notifier and the history store.
type runtime struct {
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	gate     *cdn.Gate
	notifier notify.Notifier
	history  eventstore.Store
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{registry: prom.NewRegistry(), notifier: notify.Noop{}}
	rt.recorder = metrics.NewPrometheusRecorder(rt.registry)

	gate, err := cdn.FromConfig(cfg, rt.recorder)
	if err != nil {
		return nil, err
	}
	rt.gate = gate

	n, err := notify.New(cfg.Notify)
	if err != nil {
		// Notifications are best effort; a missing broker must not block builds.
		slog.Warn("Notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
	} else {
		rt.notifier = n
	}

	if cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			_ = rt.notifier.Close()
			return nil, err
		}
		rt.history = store
	}
	return rt, nil
}

func (rt *runtime) options() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithRecorder(rt.recorder),
		pipeline.WithGate(rt.gate),
		pipeline.WithNotifier(rt.notifier),
	}
	if rt.history != nil {
		opts = append(opts, pipeline.WithHistory(rt.history))
	}
	return opts
}

func (rt *runtime) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(rt.registry, path); err != nil {
		slog.Warn("Cannot write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	if err := rt.notifier.Close(); err != nil {
		slog.Warn("Closing notifier failed", logfields.Error(err))
	}
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			slog.Warn("Closing history store failed", logfields.Error(err))
		}
	}
}
