// Package notify announces content changes produced by a pipeline run.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
)

// Change describes one rewritten file written to the distribution tree.
type Change struct {
	RunID      string    `json:"run_id"`
	Class      string    `json:"class"`
	Path       string    `json:"path"`
	Revisioned string    `json:"revisioned"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier publishes content-changed messages. Failures are reported to the
// caller, which logs them; they never fail a run.
type Notifier interface {
	ContentChanged(ctx context.Context, c Change) error
	Close() error
}

// Noop discards every change.
type Noop struct{}

func (Noop) ContentChanged(context.Context, Change) error { return nil }
func (Noop) Close() error                                 { return nil }

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type corePublisher struct{ conn *nats.Conn }

func (p corePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

type streamPublisher struct{ js jetstream.JetStream }

func (p streamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	return err
}

// NATSNotifier publishes each Change as JSON on a subject.
type NATSNotifier struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	timeout time.Duration
}

// New returns a NATS notifier for cfg, or Noop when no URL is configured.
func New(cfg config.NotifyConfig) (Notifier, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("assetrev"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var pub publisher = corePublisher{conn: conn}
	if cfg.Stream != "" {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        cfg.Stream,
			Description: "assetrev content changes",
			Subjects:    []string{cfg.Subject},
			MaxAge:      7 * 24 * time.Hour,
		}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
		}
		pub = streamPublisher{js: js}
	}

	slog.Info("NATS notifier initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))
	return &NATSNotifier{conn: conn, pub: pub, subject: cfg.Subject, timeout: 5 * time.Second}, nil
}

// ContentChanged implements Notifier.
func (n *NATSNotifier) ContentChanged(ctx context.Context, c Change) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, n.subject, data); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	slog.Debug("Published content change", logfields.Class(c.Class), logfields.Path(c.Path))
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
