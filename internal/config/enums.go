package config

import (
	"fmt"
	"slices"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Codec enumerates precompression formats for sidecar files.
type Codec string

const (
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
)

var (
	logLevels    = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	logFormats   = []LogFormat{LogFormatJSON, LogFormatText}
	retryModes   = []RetryBackoffMode{RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential}
	codecs       = []Codec{CodecGzip, CodecZstd}
	codecAliases = map[string]Codec{"gz": CodecGzip, "zst": CodecZstd}
)

func fold(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeLogLevel case-folds a level, returning "" when unknown.
func NormalizeLogLevel(raw string) LogLevel {
	if l := LogLevel(fold(raw)); slices.Contains(logLevels, l) {
		return l
	}
	if fold(raw) == "warning" {
		return LogLevelWarn
	}
	return ""
}

// NormalizeRetryBackoff converts arbitrary user input into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	if m := RetryBackoffMode(fold(raw)); slices.Contains(retryModes, m) {
		return m
	}
	return ""
}

// NormalizeCodec converts a codec name or file-extension alias into a Codec.
func NormalizeCodec(raw string) Codec {
	f := fold(raw)
	if c, ok := codecAliases[f]; ok {
		return c
	}
	if c := Codec(f); slices.Contains(codecs, c) {
		return c
	}
	return ""
}

// Extension returns the sidecar file extension for the codec.
func (c Codec) Extension() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	default:
		return ""
	}
}

// normalize case-folds enumerations in place. Unknown values are kept so that
// Validate can report them.
func (c *Config) normalize() {
	if l := NormalizeLogLevel(string(c.Logging.Level)); l != "" {
		c.Logging.Level = l
	}
	if f := LogFormat(fold(string(c.Logging.Format))); slices.Contains(logFormats, f) {
		c.Logging.Format = f
	}
	if m := NormalizeRetryBackoff(string(c.CDN.Retry.Mode)); m != "" {
		c.CDN.Retry.Mode = m
	}
	for i, codec := range c.Precompress {
		if n := NormalizeCodec(string(codec)); n != "" {
			c.Precompress[i] = n
		}
	}
	for i, ext := range c.Styles.CompilerExtensions {
		ext = fold(ext)
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Styles.CompilerExtensions[i] = ext
	}
}

func validateEnum[T ~string](field string, value T, allowed []T) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q, valid options: %v", field, value, allowed)
}
