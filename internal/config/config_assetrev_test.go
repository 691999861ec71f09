package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "js", cfg.SourceDir(asset.ClassScript))
	require.Equal(t, "img", cfg.SourceDir(asset.ClassImage))
	require.Equal(t, RuleList{{From: "../img/", To: "/img/"}}, cfg.DirectoryRewriteRules)
	require.Equal(t, "imgs", cfg.Prefix(asset.ClassImage))
	require.False(t, cfg.CDN.Enable)
	require.True(t, cfg.Minify.MinifyScripts())
	require.Equal(t, 30*time.Second, cfg.UploadTimeout())
}

func TestParseRulesPreserveMappingOrder(t *testing.T) {
	cfg, err := Parse([]byte(`
directory_rewrite_rules:
  "../img/": "/img/"
  "../fonts/": "/static/fonts/"
  "../": "/"
`))
	require.NoError(t, err)
	require.Equal(t, RuleList{
		{From: "../img/", To: "/img/"},
		{From: "../fonts/", To: "/static/fonts/"},
		{From: "../", To: "/"},
	}, cfg.DirectoryRewriteRules)
}

func TestParseRulesSequenceAndExplicitEmpty(t *testing.T) {
	cfg, err := Parse([]byte(`
directory_rewrite_rules:
  - {from: "../images/", to: "/assets/images/"}
`))
	require.NoError(t, err)
	require.Equal(t, RuleList{{From: "../images/", To: "/assets/images/"}}, cfg.DirectoryRewriteRules)

	cfg, err = Parse([]byte("directory_rewrite_rules: []\n"))
	require.NoError(t, err)
	require.Empty(t, cfg.DirectoryRewriteRules)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("ASSETREV_TEST_SECRET", "s3cr3t")
	cfg, err := Parse([]byte(`
cdn:
  enable: true
  endpoint: https://storage.example.com
  bucket: static
  access_key: ak
  secret_key: ${ASSETREV_TEST_SECRET}
  retry: {mode: LINEAR}
precompress: [GZ, zstd]
logging: {level: WARNING}
`))
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", cfg.CDN.SecretKey)
	require.Equal(t, RetryBackoffLinear, cfg.CDN.Retry.Mode)
	require.Equal(t, []Codec{CodecGzip, CodecZstd}, cfg.Precompress)
	require.Equal(t, LogLevelWarn, cfg.Logging.Level)
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]string{
		"dist overlaps sources": "dist_dir: js\n",
		"dist is root":          "dist_dir: .\n",
		"duplicate source dirs": "sources: {scripts: assets, styles: assets}\n",
		"fingerprint too short": "fingerprint: {length: 4}\n",
		"cdn without endpoint":  "cdn: {enable: true}\n",
		"cdn remote without keys": "cdn: {enable: true, endpoint: 'https://x', bucket: b}\n",
		"unknown codec":         "precompress: [brotli]\n",
		"empty rule":            "directory_rewrite_rules: [{from: '', to: /}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
		})
	}
}

func TestLoadResolvesSourceRootAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("source_root: web\ndebug: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "web"), cfg.SourceRoot)
	require.Equal(t, filepath.Join(dir, "web", "dist"), cfg.DistPath())
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInitRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "second init without force must fail")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "static", cfg.CDN.Bucket)
	require.False(t, cfg.CDN.Enable)
}
