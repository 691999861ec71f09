package rewrite

import (
	"bytes"
	"strings"
)

// referenceAttrs hold a single URL.
var referenceAttrs = map[string]bool{
	"src":      true,
	"href":     true,
	"data-src": true,
	"poster":   true,
	"data":     true,
}

// RewriteMarkup rewrites the reference attributes, inline style attributes and
// <style> bodies of a markup document located at file. Text, comments and
// <script> bodies are copied unchanged. Directory rules are not applied.
func (r *Rewriter) RewriteMarkup(file string, src []byte) ([]byte, Stats) {
	var st Stats
	l := &markupLexer{r: r, file: file, src: src, st: &st}
	l.out.Grow(len(src))
	l.run()
	return l.out.Bytes(), st
}

type markupLexer struct {
	r    *Rewriter
	file string
	src  []byte
	pos  int
	out  bytes.Buffer
	st   *Stats
}

func (l *markupLexer) run() {
	for l.pos < len(l.src) {
		next := bytes.IndexByte(l.src[l.pos:], '<')
		if next < 0 {
			l.out.Write(l.src[l.pos:])
			return
		}
		l.out.Write(l.src[l.pos : l.pos+next])
		l.pos += next
		l.tag()
	}
}

// copyThrough copies up to and including the first occurrence of end, or the
// rest of the input when end is missing.
func (l *markupLexer) copyThrough(end string) {
	i := bytes.Index(l.src[l.pos:], []byte(end))
	stop := len(l.src)
	if i >= 0 {
		stop = l.pos + i + len(end)
	}
	l.out.Write(l.src[l.pos:stop])
	l.pos = stop
}

// tag handles the construct starting at l.src[l.pos] == '<'.
func (l *markupLexer) tag() {
	rest := l.src[l.pos:]
	switch {
	case bytes.HasPrefix(rest, []byte("<!--")):
		l.copyThrough("-->")
		return
	case bytes.HasPrefix(rest, []byte("</")), bytes.HasPrefix(rest, []byte("<!")), bytes.HasPrefix(rest, []byte("<?")):
		l.copyThrough(">")
		return
	case len(rest) < 2 || !isLetter(rest[1]):
		l.out.WriteByte('<')
		l.pos++
		return
	}

	start := l.pos + 1
	end := start
	for end < len(l.src) && !isSpace(l.src[end]) && l.src[end] != '>' && l.src[end] != '/' {
		end++
	}
	name := strings.ToLower(string(l.src[start:end]))
	l.out.Write(l.src[l.pos:end])
	l.pos = end
	selfClosing := l.attributes()

	if selfClosing {
		return
	}
	switch name {
	case "script":
		l.rawBody("script", false)
	case "style":
		l.rawBody("style", true)
	case "textarea", "title":
		l.rawBody(name, false)
	}
}

// attributes consumes the attribute list of a start tag including the closing
// '>' and reports whether the tag was self-closing.
func (l *markupLexer) attributes() bool {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isSpace(c):
			l.out.WriteByte(c)
			l.pos++
			continue
		case c == '>':
			l.out.WriteByte(c)
			l.pos++
			return false
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '>':
			l.out.WriteString("/>")
			l.pos += 2
			return true
		case c == '/':
			l.out.WriteByte(c)
			l.pos++
			continue
		}

		nameStart := l.pos
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if isSpace(c) || c == '=' || c == '>' || c == '/' {
				break
			}
			l.pos++
		}
		if l.pos == nameStart {
			// Stray byte such as a lone quote; keep it and move on.
			l.out.WriteByte(l.src[l.pos])
			l.pos++
			continue
		}
		attr := strings.ToLower(string(l.src[nameStart:l.pos]))
		l.out.Write(l.src[nameStart:l.pos])

		// Optional "= value" with surrounding whitespace.
		look := l.pos
		for look < len(l.src) && isSpace(l.src[look]) {
			look++
		}
		if look >= len(l.src) || l.src[look] != '=' {
			continue
		}
		look++
		for look < len(l.src) && isSpace(l.src[look]) {
			look++
		}
		l.out.Write(l.src[l.pos:look])
		l.pos = look
		if l.pos >= len(l.src) {
			return false
		}

		var value []byte
		quote := l.src[l.pos]
		if quote == '"' || quote == '\'' {
			closeAt := bytes.IndexByte(l.src[l.pos+1:], quote)
			if closeAt < 0 {
				l.out.Write(l.src[l.pos:])
				l.pos = len(l.src)
				return false
			}
			value = l.src[l.pos+1 : l.pos+1+closeAt]
			l.out.WriteByte(quote)
			l.out.Write(l.attrValue(attr, value))
			l.out.WriteByte(quote)
			l.pos += closeAt + 2
			continue
		}
		valStart := l.pos
		for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && l.src[l.pos] != '>' {
			l.pos++
		}
		value = l.src[valStart:l.pos]
		l.out.Write(l.attrValue(attr, value))
	}
	return false
}

func (l *markupLexer) attrValue(attr string, value []byte) []byte {
	switch {
	case referenceAttrs[attr]:
		return []byte(l.r.resolve(l.file, string(value), nil, l.st))
	case attr == "srcset":
		return []byte(l.srcset(string(value)))
	case attr == "style":
		return l.r.rewriteCSS(l.file, value, nil, l.st)
	}
	return value
}

// srcset rewrites the URL of each comma separated image candidate, keeping
// width and density descriptors and spacing.
func (l *markupLexer) srcset(value string) string {
	parts := strings.Split(value, ",")
	for i, part := range parts {
		lead := len(part) - len(strings.TrimLeft(part, " \t\r\n\f"))
		end := lead
		for end < len(part) && !isSpace(part[end]) {
			end++
		}
		if end == lead {
			continue
		}
		parts[i] = part[:lead] + l.r.resolve(l.file, part[lead:end], nil, l.st) + part[end:]
	}
	return strings.Join(parts, ",")
}

// rawBody copies an element body up to its end tag. Style bodies are run
// through the CSS matcher; other bodies are never touched.
func (l *markupLexer) rawBody(name string, css bool) {
	closer := []byte("</" + name)
	i := indexFold(l.src[l.pos:], closer)
	stop := len(l.src)
	if i >= 0 {
		stop = l.pos + i
	}
	body := l.src[l.pos:stop]
	if css {
		l.out.Write(l.r.rewriteCSS(l.file, body, nil, l.st))
	} else {
		l.out.Write(body)
	}
	l.pos = stop
}

func indexFold(s, sep []byte) int {
	n := len(sep)
	for i := 0; i+n <= len(s); i++ {
		if bytes.EqualFold(s[i:i+n], sep) {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
