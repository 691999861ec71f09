package transform

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

const (
	mimeCSS  = "text/css"
	mimeJS   = "application/javascript"
	mimeHTML = "text/html"
)

// Minifier compresses scripts, styles and markup. It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

// NewMinifier registers the CSS, JS and HTML minifiers. Markup keeps document
// tags, end tags and attribute quotes so rewritten references stay readable.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.Add(mimeHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return &Minifier{m: m}
}

// Script minifies JavaScript source.
func (x *Minifier) Script(path string, src []byte) ([]byte, error) {
	return x.run(mimeJS, path, src)
}

// Style minifies plain CSS.
func (x *Minifier) Style(path string, src []byte) ([]byte, error) {
	return x.run(mimeCSS, path, src)
}

// Markup minifies HTML.
func (x *Minifier) Markup(path string, src []byte) ([]byte, error) {
	return x.run(mimeHTML, path, src)
}

func (x *Minifier) run(mime, path string, src []byte) ([]byte, error) {
	out, err := x.m.Bytes(mime, src)
	if err != nil {
		return nil, errors.TransformError("minification failed").
			WithCause(err).
			WithPath(path).
			WithContext("media_type", mime).
			Build()
	}
	return out, nil
}
