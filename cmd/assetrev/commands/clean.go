package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assetrev/internal/pipeline"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Dist string `name:"dist" short:"o" help:"Override dist_dir"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if c.Dist != "" {
		cfg.DistDir = c.Dist
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	plan, err := pipeline.NewPlan(cfg)
	if err != nil {
		return err
	}
	if err := pipeline.Clean(context.Background(), plan); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "removed %s\n", plan.DistDir)
	return nil
}
