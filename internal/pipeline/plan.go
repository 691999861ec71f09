package pipeline

import (
	"path/filepath"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/rewrite"
)

// Plan is an immutable execution plan derived from config. It captures the
// resolved paths and knobs every stage reads.
type Plan struct {
	Config      *config.Config
	SourceRoot  string // absolute
	DistDir     string // absolute
	Concurrency int
	StyleRules  []rewrite.Rule
	Precompress []config.Codec
}

// StagingDir holds compiled, revisioned styles until their references are rewritten.
const StagingDir = "css-tmp"

// NewPlan resolves cfg into a Plan.
func NewPlan(cfg *config.Config) (*Plan, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is required").Build()
	}
	root, err := filepath.Abs(cfg.SourceRoot)
	if err != nil {
		return nil, errors.ConfigError("cannot resolve source root").WithCause(err).WithPath(cfg.SourceRoot).Build()
	}
	dist, err := filepath.Abs(cfg.DistPath())
	if err != nil {
		return nil, errors.ConfigError("cannot resolve dist directory").WithCause(err).WithPath(cfg.DistDir).Build()
	}
	rules := make([]rewrite.Rule, 0, len(cfg.DirectoryRewriteRules))
	for _, r := range cfg.DirectoryRewriteRules {
		rules = append(rules, rewrite.Rule{From: r.From, To: r.To})
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Plan{
		Config:      cfg,
		SourceRoot:  root,
		DistDir:     dist,
		Concurrency: concurrency,
		StyleRules:  rules,
		Precompress: cfg.Precompress,
	}, nil
}

// SourceDir is the source-root-relative directory of class.
func (p *Plan) SourceDir(class asset.Class) string {
	return p.Config.SourceDir(class)
}

// DistPath maps a dist-relative slash path to an absolute OS path.
func (p *Plan) DistPath(rel string) string {
	return filepath.Join(p.DistDir, filepath.FromSlash(rel))
}

// StagingPath maps a source-relative style path into the staging directory.
func (p *Plan) StagingPath(rel string) string {
	return filepath.Join(p.DistDir, StagingDir, filepath.FromSlash(rel))
}
