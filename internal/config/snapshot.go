package config

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Snapshot computes a stable hash of the fields that affect the distribution
// tree. Credentials, logging and observability settings are excluded so that
// rotating a key does not look like a different build. Callers should hash a
// loaded (defaulted and normalized) configuration.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) {
		h.Write([]byte(strings.Join(parts, "=")))
		h.Write([]byte{0})
	}
	w("dist_dir", c.DistDir)
	w("sources.scripts", c.Sources.Scripts)
	w("sources.styles", c.Sources.Styles)
	w("sources.markup", c.Sources.Markup)
	w("sources.images", c.Sources.Images)
	w("sources.fonts", c.Sources.Fonts)
	w("fingerprint.length", strconv.Itoa(c.Fingerprint.Length))
	// Rule order is significant: first match wins.
	for i, r := range c.DirectoryRewriteRules {
		w("rule", strconv.Itoa(i), r.From, r.To)
	}
	w("styles.compiler", strings.Join(c.Styles.Compiler, " "))
	exts := append([]string{}, c.Styles.CompilerExtensions...)
	sort.Strings(exts)
	w("styles.compiler_extensions", strings.Join(exts, ","))
	w("minify.scripts", strconv.FormatBool(c.Minify.MinifyScripts()))
	w("minify.styles", strconv.FormatBool(c.Minify.CompressStyles()))
	w("minify.markup", strconv.FormatBool(c.Minify.MinifyMarkup()))
	codecs := make([]string, 0, len(c.Precompress))
	for _, codec := range c.Precompress {
		codecs = append(codecs, string(codec))
	}
	sort.Strings(codecs)
	w("precompress", strings.Join(codecs, ","))
	w("cdn.enable", strconv.FormatBool(c.CDN.Enable))
	if c.CDN.Enable {
		w("cdn.endpoint", c.CDN.Endpoint)
		w("cdn.bucket", c.CDN.Bucket)
		prefixes := make([]string, 0, len(c.CDN.Prefixes))
		for class, p := range c.CDN.Prefixes {
			prefixes = append(prefixes, class+":"+p)
		}
		sort.Strings(prefixes)
		w("cdn.prefixes", strings.Join(prefixes, ","))
	}
	return hex.EncodeToString(h.Sum(nil))
}
