package rewrite

import (
	"bytes"
	"regexp"
)

// cssRefRe matches url(...) in its three quoting forms and quoted @import.
// Exactly one of the capture groups 1..5 is set for a match.
var cssRefRe = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]*))\s*\)|@import\s+(?:"([^"]*)"|'([^']*)')`)

// RewriteCSS rewrites url() and @import references of a stylesheet located at
// file (relative to the source root) using the configured rules. Comments are
// copied unchanged.
func (r *Rewriter) RewriteCSS(file string, src []byte) ([]byte, Stats) {
	var st Stats
	out := r.rewriteCSS(file, src, r.rules, &st)
	return out, st
}

func (r *Rewriter) rewriteCSS(file string, src []byte, rules []Rule, st *Stats) []byte {
	var buf bytes.Buffer
	buf.Grow(len(src))
	rest := src
	for len(rest) > 0 {
		start := commentStart(rest)
		if start < 0 {
			buf.Write(r.rewriteCSSSegment(file, rest, rules, st))
			break
		}
		buf.Write(r.rewriteCSSSegment(file, rest[:start], rules, st))
		end := bytes.Index(rest[start+2:], []byte("*/"))
		if end < 0 {
			buf.Write(rest[start:])
			break
		}
		stop := start + 2 + end + 2
		buf.Write(rest[start:stop])
		rest = rest[stop:]
	}
	return buf.Bytes()
}

// commentStart returns the index of the first "/*" that is not inside a
// string literal, or -1. An unterminated string ends at the line break.
func commentStart(src []byte) int {
	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '/':
			if i+1 < len(src) && src[i+1] == '*' {
				return i
			}
		case '"', '\'':
			j := i + 1
			for ; j < len(src) && src[j] != c && src[j] != '\n'; j++ {
				if src[j] == '\\' {
					j++
				}
			}
			i = j
		}
	}
	return -1
}

func (r *Rewriter) rewriteCSSSegment(file string, seg []byte, rules []Rule, st *Stats) []byte {
	matches := cssRefRe.FindAllSubmatchIndex(seg, -1)
	if len(matches) == 0 {
		return seg
	}
	var buf bytes.Buffer
	last := 0
	for _, m := range matches {
		for g := 1; g <= 5; g++ {
			s, e := m[2*g], m[2*g+1]
			if s < 0 {
				continue
			}
			buf.Write(seg[last:s])
			buf.WriteString(r.resolve(file, string(seg[s:e]), rules, st))
			last = e
			break
		}
	}
	buf.Write(seg[last:])
	return buf.Bytes()
}
