package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/manifest"
)

var imgRule = []Rule{{From: "../img/", To: "/img/"}}

func TestRewriteCSSDirectoryRule(t *testing.T) {
	rw := New(manifest.Manifest{"img/logo.png": "img/logo-ab12cd.png"}, imgRule)

	out, st := rw.RewriteCSS("css/style.css", []byte(".logo { background: url(../img/logo.png) no-repeat; }"))
	require.Contains(t, string(out), "url(/img/logo-ab12cd.png)")
	require.Equal(t, Stats{Matched: 1, Rewritten: 1}, st)
}

func TestRewriteCSSQuotingForms(t *testing.T) {
	rw := New(manifest.Manifest{
		"img/a.png":       "img/a-1111.png",
		"fonts/f.woff2":   "fonts/f-2222.woff2",
		"css/partial.css": "css/partial-3333.css",
	}, imgRule)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unquoted", `a{b:url(../img/a.png)}`, `a{b:url(/img/a-1111.png)}`},
		{"double", `a{b:url("../img/a.png")}`, `a{b:url("/img/a-1111.png")}`},
		{"single with spaces", `a{b:URL(  '../img/a.png'  )}`, `a{b:URL(  '/img/a-1111.png'  )}`},
		{"relative to file", `@font-face{src:url(../fonts/f.woff2?v=3#iefix)}`, `@font-face{src:url(../fonts/f-2222.woff2?v=3#iefix)}`},
		{"import", `@import "partial.css";`, `@import "partial-3333.css";`},
		{"import url", `@import url('/css/partial.css');`, `@import url('/css/partial-3333.css');`},
		{"data uri", `a{b:url(data:image/png;base64,AAAA)}`, `a{b:url(data:image/png;base64,AAAA)}`},
		{"absolute url", `a{b:url(https://example.com/img/a.png)}`, `a{b:url(https://example.com/img/a.png)}`},
		{"comment untouched", `/* url(../img/a.png) */a{}`, `/* url(../img/a.png) */a{}`},
		{"unterminated comment", `a{} /* url(../img/a.png)`, `a{} /* url(../img/a.png)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := rw.RewriteCSS("css/main.css", []byte(tt.in))
			require.Equal(t, tt.want, string(out))
		})
	}
}

func TestRewriteCSSCommentMarkerInString(t *testing.T) {
	rw := New(manifest.Manifest{"img/a.png": "img/a-1111.png"}, imgRule)
	in := `a::before{content:"/*";} b{background:url(../img/a.png);} /* x */ i::after{content:'it\'s /*'} c{d:url(../img/a.png)}`

	out, st := rw.RewriteCSS("css/s.css", []byte(in))
	require.Equal(t, `a::before{content:"/*";} b{background:url(/img/a-1111.png);} /* x */ i::after{content:'it\'s /*'} c{d:url(/img/a-1111.png)}`, string(out))
	require.Equal(t, Stats{Matched: 2, Rewritten: 2}, st)
}

func TestRewriteCSSUnmappedPreserved(t *testing.T) {
	rw := New(manifest.Manifest{"img/a.png": "img/a-1111.png"}, imgRule)
	in := "a { background: url( ../img/missing.png ); }\n"

	out, st := rw.RewriteCSS("css/main.css", []byte(in))
	require.Equal(t, in, string(out))
	require.Equal(t, 1, st.Unmapped)
	require.Zero(t, st.Rewritten)
}

func TestRewriteCSSIdempotent(t *testing.T) {
	rw := New(manifest.Manifest{
		"img/a.png": "img/a-1111.png",
		"img/b.svg": "img/b-2222.svg",
	}, imgRule)
	in := []byte(`.a{background:url(../img/a.png)} .b{mask:url("../img/b.svg#icon")}`)

	once, _ := rw.RewriteCSS("css/main.css", in)
	twice, st := rw.RewriteCSS("css/main.css", once)
	require.Equal(t, string(once), string(twice))
	require.Zero(t, st.Rewritten)
}

func TestRewriteCSSFirstRuleWins(t *testing.T) {
	rw := New(manifest.Manifest{"img/a.png": "img/a-1111.png"}, []Rule{
		{From: "../img/", To: "/img/"},
		{From: "../", To: "/static/"},
	})
	out, _ := rw.RewriteCSS("css/main.css", []byte(`url(../img/a.png)`))
	require.Equal(t, `url(/img/a-1111.png)`, string(out))
}
