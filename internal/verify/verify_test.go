package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestExtractMarkup(t *testing.T) {
	refs, err := ExtractMarkup([]byte(`<html><head>
<link rel="stylesheet" href="/css/site-1.css">
<style>.a{background:url(img/a-1.png)}</style>
</head><body>
<script src="js/app-1.js"></script>
<img src="img/b-1.png" srcset="img/b-1.png 1x, img/b@2x-1.png 2x">
<video src="v.mp4" poster="img/p-1.jpg"></video>
<div style="background:url('/img/c-1.png')"></div>
<a href="about.html">about</a>
</body></html>`))
	require.NoError(t, err)

	var urls []string
	for _, r := range refs {
		urls = append(urls, r.URL)
	}
	require.ElementsMatch(t, []string{
		"/css/site-1.css", "img/a-1.png", "js/app-1.js", "img/b-1.png", "img/b-1.png",
		"img/b@2x-1.png", "v.mp4", "img/p-1.jpg", "/img/c-1.png",
	}, urls)
}

func TestExtractCSSSkipsComments(t *testing.T) {
	refs := ExtractCSS([]byte(`/* url(old.png) */ @import "base-1.css"; a{b:url("x-1.png")}`))
	require.Equal(t, []Reference{
		{URL: "base-1.css", Tag: "url", Attribute: "import"},
		{URL: "x-1.png", Tag: "url", Attribute: "url"},
	}, refs)
}

func TestExtractCSSCommentMarkerInString(t *testing.T) {
	refs := ExtractCSS([]byte(`a::before{content:"/*"} b{c:url(y-1.png)} /* url(old.png) */`))
	require.Equal(t, []Reference{{URL: "y-1.png", Tag: "url", Attribute: "url"}}, refs)
}

func TestVerify(t *testing.T) {
	dist := t.TempDir()
	writeFile(t, dist, "js/app-9f3e.js", "x")
	writeFile(t, dist, "img/logo-ab12.png", "x")
	writeFile(t, dist, "css/site-cc33.css", `a{background:url(/img/logo-ab12.png)} b{background:url(/img/gone.png)}`)
	writeFile(t, dist, "index.html", `<link href="css/site-cc33.css" rel="stylesheet"><script src="js/app.js"></script><img src="https://example.com/x.png">`)
	writeFile(t, dist, "rev/script/rev-manifest.json", `{"js/app.js": "broken`)

	originals := manifest.Manifest{"js/app.js": "js/app-9f3e.js"}
	report, err := Verify(context.Background(), dist, originals)
	require.NoError(t, err)
	require.Equal(t, 2, report.Files)
	require.Equal(t, 4, report.References)
	require.Len(t, report.Issues, 2)

	require.Equal(t, "css/site-cc33.css", report.Issues[0].File)
	require.Equal(t, IssueMissing, report.Issues[0].Kind)
	require.Equal(t, "img/gone.png", report.Issues[0].Target)

	require.Equal(t, "index.html", report.Issues[1].File)
	require.Equal(t, IssueUnrevisioned, report.Issues[1].Kind)

	require.False(t, report.OK())
	require.True(t, errors.HasCategory(report.Err(), errors.CategoryNotFound))
}

func TestVerifyCleanTree(t *testing.T) {
	dist := t.TempDir()
	writeFile(t, dist, "blog/post.html", `<script src="../js/app-1.js"></script><a href="#top">top</a>`)
	writeFile(t, dist, "js/app-1.js", "x")

	report, err := Verify(context.Background(), dist, nil)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.NoError(t, report.Err())
}

func TestLoadManifests(t *testing.T) {
	dist := t.TempDir()
	_, err := manifest.Write(dist, asset.ClassScript, manifest.Manifest{"js/a.js": "js/a-1.js"})
	require.NoError(t, err)
	_, err = manifest.Write(dist, asset.ClassStyle, manifest.Manifest{"css/a.css": "css/a-2.css"})
	require.NoError(t, err)

	m := LoadManifests(dist)
	require.Equal(t, manifest.Manifest{"js/a.js": "js/a-1.js", "css/a.css": "css/a-2.css"}, m)
}
