package config

import (
	"runtime"

	"git.home.luguber.info/inful/assetrev/internal/asset"
)

// Default values mirroring the conventional asset layout.
const (
	DefaultSourceRoot        = "."
	DefaultDistDir           = "dist"
	DefaultFingerprintLength = 10
	DefaultNotifySubject     = "assetrev.changed"
)

// DefaultPrefixes are the CDN key prefixes per uploaded class.
var DefaultPrefixes = map[asset.Class]string{
	asset.ClassScript: "js",
	asset.ClassImage:  "imgs",
	asset.ClassFont:   "fonts",
	asset.ClassStyle:  "css",
}

// DefaultRules maps the stylesheet-relative image directory to its runtime URL root.
func DefaultRules() RuleList {
	return RuleList{{From: "../img/", To: "/img/"}}
}

func (c *Config) applyDefaults() {
	if c.SourceRoot == "" {
		c.SourceRoot = DefaultSourceRoot
	}
	if c.DistDir == "" {
		c.DistDir = DefaultDistDir
	}
	setDefault(&c.Sources.Scripts, "js")
	setDefault(&c.Sources.Styles, "css")
	setDefault(&c.Sources.Markup, "html")
	setDefault(&c.Sources.Images, "img")
	setDefault(&c.Sources.Fonts, "fonts")
	if c.Fingerprint.Length == 0 {
		c.Fingerprint.Length = DefaultFingerprintLength
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	// nil means the key was absent; an explicit empty list disables rewriting.
	if c.DirectoryRewriteRules == nil {
		c.DirectoryRewriteRules = DefaultRules()
	}
	if len(c.Styles.CompilerExtensions) == 0 {
		c.Styles.CompilerExtensions = []string{".less", ".scss"}
	}
	if c.CDN.Prefixes == nil {
		c.CDN.Prefixes = make(map[string]string, len(DefaultPrefixes))
	}
	for class, prefix := range DefaultPrefixes {
		if _, ok := c.CDN.Prefixes[string(class)]; !ok {
			c.CDN.Prefixes[string(class)] = prefix
		}
	}
	if c.CDN.Concurrency <= 0 {
		c.CDN.Concurrency = 4
	}
	if c.CDN.Retry.Mode == "" {
		c.CDN.Retry.Mode = RetryBackoffExponential
	}
	setDefault(&c.CDN.Retry.Initial, "500ms")
	setDefault(&c.CDN.Retry.Max, "10s")
	if c.CDN.Retry.MaxRetries == nil {
		n := 3
		c.CDN.Retry.MaxRetries = &n
	}
	setDefault(&c.CDN.Timeout, "30s")
	setDefault(&c.Notify.Subject, DefaultNotifySubject)
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Debug {
		c.Logging.Level = LogLevelDebug
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}

// SourceDir returns the configured source directory for a class.
func (c *Config) SourceDir(class asset.Class) string {
	switch class {
	case asset.ClassScript:
		return asset.Normalize(c.Sources.Scripts)
	case asset.ClassStyle:
		return asset.Normalize(c.Sources.Styles)
	case asset.ClassMarkup:
		return asset.Normalize(c.Sources.Markup)
	case asset.ClassImage:
		return asset.Normalize(c.Sources.Images)
	case asset.ClassFont:
		return asset.Normalize(c.Sources.Fonts)
	default:
		return ""
	}
}

// Prefix returns the CDN key prefix for a class.
func (c *Config) Prefix(class asset.Class) string {
	if p, ok := c.CDN.Prefixes[string(class)]; ok && p != "" {
		return p
	}
	return DefaultPrefixes[class]
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
