package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Validate checks the configuration invariants. All failures are classified
// validation errors naming the offending field.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateSources,
		c.validateDist,
		c.validateFingerprint,
		c.validateRules,
		c.validateCDN,
		c.validateEnums,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field string, reason string) error {
	return errors.ValidationError("invalid configuration").
		WithContext("field", field).
		WithCause(fmt.Errorf("%s: %s", field, reason)).
		Build()
}

func (c *Config) validateSources() error {
	seen := make(map[string]asset.Class)
	for _, class := range asset.Classes {
		dir := c.SourceDir(class)
		if dir == "" {
			return invalid("sources."+string(class), "directory must not be empty")
		}
		if strings.HasPrefix(dir, "../") || filepath.IsAbs(dir) {
			return invalid("sources."+string(class), "directory must be inside source_root")
		}
		if other, dup := seen[dir]; dup {
			return invalid("sources."+string(class), fmt.Sprintf("directory %q already used by %s", dir, other))
		}
		seen[dir] = class
	}
	return nil
}

// validateDist guards clean: the dist directory is removed wholesale, so it
// must never be the source root or contain a source directory.
func (c *Config) validateDist() error {
	dist := asset.Normalize(c.DistDir)
	if dist == "" || dist == "." || dist == "/" {
		return invalid("dist_dir", "must name a dedicated output directory")
	}
	if filepath.IsAbs(c.DistDir) {
		return nil
	}
	if strings.HasPrefix(dist, "../") || dist == ".." {
		return invalid("dist_dir", "must be inside source_root or absolute")
	}
	for _, class := range asset.Classes {
		src := c.SourceDir(class)
		if src == dist || strings.HasPrefix(src, dist+"/") {
			return invalid("dist_dir", fmt.Sprintf("overlaps %s source directory %q", class, src))
		}
	}
	return nil
}

func (c *Config) validateFingerprint() error {
	if c.Fingerprint.Length < 8 || c.Fingerprint.Length > 64 {
		return invalid("fingerprint.length", "must be between 8 and 64")
	}
	return nil
}

func (c *Config) validateRules() error {
	for i, r := range c.DirectoryRewriteRules {
		if r.From == "" {
			return invalid(fmt.Sprintf("directory_rewrite_rules[%d].from", i), "must not be empty")
		}
	}
	return nil
}

func (c *Config) validateCDN() error {
	if !c.CDN.Enable {
		return nil
	}
	if c.CDN.Endpoint == "" {
		return invalid("cdn.endpoint", "required when cdn.enable is true")
	}
	u, err := url.Parse(c.CDN.Endpoint)
	if err != nil {
		return invalid("cdn.endpoint", err.Error())
	}
	switch u.Scheme {
	case "file":
	case "http", "https":
		if c.CDN.Bucket == "" {
			return invalid("cdn.bucket", "required when cdn.enable is true")
		}
		if c.CDN.AccessKey == "" || c.CDN.SecretKey == "" {
			return invalid("cdn.access_key", "credentials required for remote endpoints")
		}
	default:
		return invalid("cdn.endpoint", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	for _, d := range []struct{ field, raw string }{
		{"cdn.timeout", c.CDN.Timeout},
		{"cdn.retry.initial", c.CDN.Retry.Initial},
		{"cdn.retry.max", c.CDN.Retry.Max},
	} {
		if _, err := time.ParseDuration(d.raw); err != nil {
			return invalid(d.field, err.Error())
		}
	}
	if c.CDN.Retry.MaxRetries != nil && *c.CDN.Retry.MaxRetries < 0 {
		return invalid("cdn.retry.max_retries", "cannot be negative")
	}
	return nil
}

func (c *Config) validateEnums() error {
	if err := validateEnum("logging.level", c.Logging.Level, logLevels); err != nil {
		return invalid("logging.level", err.Error())
	}
	if err := validateEnum("logging.format", c.Logging.Format, logFormats); err != nil {
		return invalid("logging.format", err.Error())
	}
	if err := validateEnum("cdn.retry.mode", c.CDN.Retry.Mode, retryModes); err != nil {
		return invalid("cdn.retry.mode", err.Error())
	}
	for _, codec := range c.Precompress {
		if err := validateEnum("precompress", codec, codecs); err != nil {
			return invalid("precompress", err.Error())
		}
	}
	return nil
}
