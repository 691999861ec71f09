package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when -c is not given.
const DefaultFile = "assetrev.yaml"

// Config is the complete, immutable configuration of one pipeline run. It is
// loaded once, adjusted by CLI flags and then passed by value to every
// component constructor.
type Config struct {
	SourceRoot            string            `yaml:"source_root"`
	DistDir               string            `yaml:"dist_dir"`
	Sources               SourcesConfig     `yaml:"sources"`
	Fingerprint           FingerprintConfig `yaml:"fingerprint"`
	Concurrency           int               `yaml:"concurrency,omitempty"`
	DirectoryRewriteRules RuleList          `yaml:"directory_rewrite_rules"`
	Styles                StylesConfig      `yaml:"styles,omitempty"`
	Minify                MinifyConfig      `yaml:"minify,omitempty"`
	Precompress           []Codec           `yaml:"precompress,omitempty"`
	CDN                   CDNConfig         `yaml:"cdn"`
	Notify                NotifyConfig      `yaml:"notify,omitempty"`
	History               HistoryConfig     `yaml:"history,omitempty"`
	Metrics               MetricsConfig     `yaml:"metrics,omitempty"`
	Logging               LoggingConfig     `yaml:"logging,omitempty"`
	Debug                 bool              `yaml:"debug"`
}

// SourcesConfig holds the per-class source directories, relative to SourceRoot.
type SourcesConfig struct {
	Scripts string `yaml:"scripts"`
	Styles  string `yaml:"styles"`
	Markup  string `yaml:"markup"`
	Images  string `yaml:"images"`
	Fonts   string `yaml:"fonts"`
}

// FingerprintConfig controls the content identifier embedded in file names.
type FingerprintConfig struct {
	Length int `yaml:"length"`
}

// StylesConfig configures style-language compilation. Compiler is an external
// command reading the source on stdin and writing CSS to stdout; it is only
// used for files whose extension is listed in CompilerExtensions.
type StylesConfig struct {
	Compiler           []string `yaml:"compiler,omitempty"`
	CompilerExtensions []string `yaml:"compiler_extensions,omitempty"`
}

// MinifyConfig toggles the delegated minification steps. Nil means enabled.
type MinifyConfig struct {
	Scripts *bool `yaml:"scripts,omitempty"`
	Styles  *bool `yaml:"styles,omitempty"`
	Markup  *bool `yaml:"markup,omitempty"`
}

// CDNConfig configures the optional object-storage sync.
type CDNConfig struct {
	Enable      bool              `yaml:"enable"`
	AccessKey   string            `yaml:"access_key"`
	SecretKey   string            `yaml:"secret_key"`
	Bucket      string            `yaml:"bucket"`
	Origin      string            `yaml:"origin"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	Prefixes    map[string]string `yaml:"prefixes,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty"`
	Concurrency int               `yaml:"concurrency,omitempty"`
	Retry       RetryConfig       `yaml:"retry,omitempty"`
}

// RetryConfig configures upload retries.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    string           `yaml:"initial,omitempty"`
	Max        string           `yaml:"max,omitempty"`
	MaxRetries *int             `yaml:"max_retries,omitempty"`
}

// NotifyConfig configures content-changed notifications.
// When Stream is set, messages are published through JetStream into that
// stream (created on first use) instead of core NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Stream  string `yaml:"stream,omitempty"`
}

// HistoryConfig configures the build history store. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures Prometheus output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // written after each run (node_exporter textfile format)
	Listen   string `yaml:"listen,omitempty"`   // /metrics listener used by the watch command
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load reads, expands, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, errors.ConfigError("configuration file not found").WithPath(configPath).Build()
	}
	if err != nil {
		return nil, errors.ConfigError("failed to read config file").WithCause(err).WithPath(configPath).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.SourceRoot) {
		// Relative source roots are relative to the config file, not the cwd.
		cfg.SourceRoot = filepath.Join(filepath.Dir(configPath), cfg.SourceRoot)
	}
	return cfg, nil
}

// Parse decodes configuration bytes after ${VAR} expansion and applies defaults
// and validation. It does not touch the filesystem.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.ConfigError("failed to unmarshal config").WithCause(err).Build()
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// DistPath resolves the distribution directory against the source root.
func (c *Config) DistPath() string {
	if filepath.IsAbs(c.DistDir) {
		return filepath.Clean(c.DistDir)
	}
	return filepath.Join(c.SourceRoot, c.DistDir)
}

// UploadTimeout is the per-call upload timeout.
func (c *Config) UploadTimeout() time.Duration {
	return parseDurationOr(c.CDN.Timeout, 30*time.Second)
}

// MinifyScripts reports whether scripts are minified before revisioning.
func (m MinifyConfig) MinifyScripts() bool { return boolOr(m.Scripts, true) }

// CompressStyles reports whether final styles are compressed.
func (m MinifyConfig) CompressStyles() bool { return boolOr(m.Styles, true) }

// MinifyMarkup reports whether final markup is minified.
func (m MinifyConfig) MinifyMarkup() bool { return boolOr(m.Markup, true) }

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").WithPath(configPath).Build()
	}

	example := Default()
	example.SourceRoot = "."
	example.Concurrency = 0
	example.CDN.AccessKey = "${ASSETREV_CDN_ACCESS_KEY}"
	example.CDN.SecretKey = "${ASSETREV_CDN_SECRET_KEY}"
	example.CDN.Bucket = "static"
	example.CDN.Origin = "https://static.example.com"
	example.CDN.Endpoint = "https://storage.example.com"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WriteError("failed to write config file").WithCause(err).WithPath(configPath).Build()
	}
	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func parseDurationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
