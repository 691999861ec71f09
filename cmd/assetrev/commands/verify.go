package commands

import (
	"context"
	"os"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	Dist string `name:"dist" short:"o" help:"Override dist_dir"`
}

func (v *VerifyCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if v.Dist != "" {
		cfg.DistDir = v.Dist
	}
	dist := cfg.DistPath()
	if info, err := os.Stat(dist); err != nil || !info.IsDir() {
		return errors.ValidationError("distribution directory not found (run build first)").WithPath(dist).Build()
	}
	return runVerify(context.Background(), g, dist)
}

