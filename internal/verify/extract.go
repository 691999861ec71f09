package verify

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Reference is one local asset reference found in an output file.
type Reference struct {
	URL       string
	Tag       string // element name, or "url" for stylesheet references
	Attribute string
}

// ExtractMarkup returns the asset references of an HTML document.
func ExtractMarkup(src []byte) ([]Reference, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	var refs []Reference
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			refs = append(refs, elementRefs(n)...)
			if n.Data == "style" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				refs = append(refs, ExtractCSS([]byte(n.FirstChild.Data))...)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

func elementRefs(n *html.Node) []Reference {
	var refs []Reference
	add := func(attr string) {
		if v := getAttr(n, attr); v != "" {
			refs = append(refs, Reference{URL: v, Tag: n.Data, Attribute: attr})
		}
	}
	switch n.Data {
	case "script", "audio", "embed", "iframe", "input", "track":
		add("src")
	case "link":
		add("href")
	case "img":
		add("src")
		refs = append(refs, srcsetRefs(n)...)
	case "source":
		add("src")
		refs = append(refs, srcsetRefs(n)...)
	case "video":
		add("src")
		add("poster")
	case "object":
		add("data")
	}
	if style := getAttr(n, "style"); style != "" {
		refs = append(refs, ExtractCSS([]byte(style))...)
	}
	return refs
}

func srcsetRefs(n *html.Node) []Reference {
	var refs []Reference
	for _, candidate := range strings.Split(getAttr(n, "srcset"), ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			refs = append(refs, Reference{URL: fields[0], Tag: n.Data, Attribute: "srcset"})
		}
	}
	return refs
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var cssURLRe = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]*))\s*\)|@import\s+(?:"([^"]*)"|'([^']*)')`)

// ExtractCSS returns the url() and @import references of a stylesheet.
func ExtractCSS(src []byte) []Reference {
	src = stripComments(src)
	var refs []Reference
	for _, m := range cssURLRe.FindAllSubmatch(src, -1) {
		for g := 1; g <= 5; g++ {
			if len(m[g]) > 0 {
				attr := "url"
				if g >= 4 {
					attr = "import"
				}
				refs = append(refs, Reference{URL: string(m[g]), Tag: "url", Attribute: attr})
				break
			}
		}
	}
	return refs
}

// stripComments drops CSS comments. A "/*" inside a string literal does not
// open a comment; an unterminated string ends at the line break.
func stripComments(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				return out
			}
			i += end + 3
		case c == '"' || c == '\'':
			j := i + 1
			for ; j < len(src) && src[j] != c && src[j] != '\n'; j++ {
				if src[j] == '\\' {
					j++
				}
			}
			if j >= len(src) {
				j = len(src) - 1
			}
			out = append(out, src[i:j+1]...)
			i = j
		default:
			out = append(out, c)
		}
	}
	return out
}
