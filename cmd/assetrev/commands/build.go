package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/pipeline"
	"git.home.luguber.info/inful/assetrev/internal/verify"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SourceRoot  string `name:"source-root" help:"Override source_root"`
	Dist        string `name:"dist" short:"o" help:"Override dist_dir"`
	CDN         bool   `name:"cdn" xor:"cdn" help:"Force CDN sync on"`
	NoCDN       bool   `name:"no-cdn" xor:"cdn" help:"Force CDN sync off"`
	Concurrency int    `help:"Worker count per stage (0 keeps the configured value)"`
	Verify      bool   `help:"Verify references in the output after a successful build"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this file after the run"`
}

// apply copies flag overrides into cfg.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.SourceRoot != "" {
		cfg.SourceRoot = b.SourceRoot
	}
	if b.Dist != "" {
		cfg.DistDir = b.Dist
	}
	switch {
	case b.CDN:
		cfg.CDN.Enable = true
	case b.NoCDN:
		cfg.CDN.Enable = false
	}
	if b.Concurrency > 0 {
		cfg.Concurrency = b.Concurrency
	}
	if b.MetricsFile != "" {
		cfg.Metrics.Textfile = b.MetricsFile
	}
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	b.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, err = RunBuild(ctx, g, cfg, b.Verify)
	return err
}

// RunBuild executes one pipeline run, prints its summary and optionally
// verifies the output.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config, verifyOutput bool) (*pipeline.Report, error) {
	rt, err := openRuntime(cfg)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	p, err := pipeline.New(cfg, rt.options()...)
	if err != nil {
		return nil, err
	}
	report, runErr := p.Run(ctx)
	fmt.Fprint(g.Out, report.Summary())
	rt.writeMetrics(cfg.Metrics.Textfile)
	if runErr != nil {
		return report, runErr
	}

	if verifyOutput {
		if err := runVerify(ctx, g, p.Plan().DistDir); err != nil {
			return report, err
		}
	}
	return report, nil
}

func runVerify(ctx context.Context, g *Global, dist string) error {
	vr, err := verify.Verify(ctx, dist, verify.LoadManifests(dist))
	if err != nil {
		return err
	}
	for _, issue := range vr.Issues {
		fmt.Fprintln(g.Out, issue.String())
	}
	fmt.Fprintf(g.Out, "verified %d files, %d references, %d issues\n", vr.Files, vr.References, len(vr.Issues))
	return vr.Err()
}
