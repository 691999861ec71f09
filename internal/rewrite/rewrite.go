// Package rewrite replaces references to original asset paths with their
// revisioned names inside styles and markup.
//
// Only known reference syntaxes are touched: CSS url() and @import, and the
// reference attributes of markup tags. Everything else is copied through
// byte for byte, so a file without mapped references comes out unchanged.
package rewrite

import (
	"path"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/manifest"
)

// Rule replaces a leading directory prefix of a reference before lookup.
type Rule struct {
	From string
	To   string
}

// Stats counts the references seen while rewriting one file.
type Stats struct {
	Matched   int // local references considered
	Rewritten int // found in the manifest
	Unmapped  int // left unchanged
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Matched += o.Matched
	s.Rewritten += o.Rewritten
	s.Unmapped += o.Unmapped
}

// Rewriter resolves references against a merged manifest.
type Rewriter struct {
	manifest manifest.Manifest
	rules    []Rule
}

// New returns a Rewriter. rules apply to style references only; markup
// references are looked up as written.
func New(m manifest.Manifest, rules []Rule) *Rewriter {
	if m == nil {
		m = manifest.Manifest{}
	}
	return &Rewriter{manifest: m, rules: rules}
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// external reports whether ref points outside the distribution tree.
func external(ref string) bool {
	switch {
	case ref == "", strings.HasPrefix(ref, "#"), strings.HasPrefix(ref, "//"):
		return true
	case schemeRe.MatchString(ref):
		return true
	}
	return false
}

// splitSuffix separates a trailing ?query or #fragment.
func splitSuffix(ref string) (p, suffix string) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

func applyRules(rules []Rule, ref string) string {
	for _, r := range rules {
		if r.From == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(ref, r.From); ok {
			return r.To + rest
		}
	}
	return ref
}

func trimLeading(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

// resolve returns the rewritten form of a single reference token found in
// file, or ref itself when it is external or not in the manifest.
func (r *Rewriter) resolve(file, ref string, rules []Rule, st *Stats) string {
	trimmed := strings.TrimSpace(ref)
	if external(trimmed) {
		return ref
	}
	p, suffix := splitSuffix(trimmed)
	if p == "" {
		return ref
	}
	st.Matched++

	normalized := applyRules(rules, p)
	candidates := []string{path.Clean(trimLeading(normalized))}
	if !strings.HasPrefix(normalized, "/") {
		candidates = append(candidates, path.Join(path.Dir(file), normalized))
	}

	for _, key := range candidates {
		value, found := r.manifest.Lookup(key)
		if !found {
			continue
		}
		st.Rewritten++
		lead := ref[:strings.Index(ref, trimmed)]
		tail := ref[len(lead)+len(trimmed):]
		return lead + replaceTail(normalized, key, value) + suffix + tail
	}
	st.Unmapped++
	return ref
}

// replaceTail produces the output reference for a manifest hit. The
// directory spelling of the reference is kept whenever the revisioned file
// lives next to the original.
func replaceTail(normalized, key, value string) string {
	if path.Dir(key) == path.Dir(value) {
		dir := ""
		if i := strings.LastIndex(normalized, "/"); i >= 0 {
			dir = normalized[:i+1]
		}
		return dir + path.Base(value)
	}
	if strings.HasSuffix(normalized, key) {
		return strings.TrimSuffix(normalized, key) + value
	}
	return "/" + value
}
