package transform

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

func TestValidateCSS(t *testing.T) {
	valid := []string{
		"",
		"a { color: red; }",
		"@media (min-width: 10px) { a[href] { content: \"}\"; } }",
		"/* { unbalanced in comment */ a {}",
		"a { background: url('x(1).png'); }",
	}
	for _, src := range valid {
		require.NoError(t, ValidateCSS([]byte(src)), src)
	}

	invalid := []string{
		"a { color: red;",
		"a } {",
		"a { content: \"open; }",
		"/* never closed",
		"a { b: calc(1px + (2px); }",
	}
	for _, src := range invalid {
		require.Error(t, ValidateCSS([]byte(src)), src)
	}
}

func TestCompilePlainCSS(t *testing.T) {
	c := NewStyleCompiler(nil, []string{".less", "scss"})
	require.Equal(t, []string{".css", ".less", ".scss"}, c.Extensions())

	out, err := c.Compile(context.Background(), "", "css/site.css", []byte("a{color:red}"))
	require.NoError(t, err)
	require.Equal(t, "a{color:red}", string(out))

	_, err = c.Compile(context.Background(), "", "css/broken.css", []byte("a{color:red"))
	require.True(t, errors.HasCategory(err, errors.CategoryTransform))
	ce, _ := errors.AsClassified(err)
	require.Equal(t, "css/broken.css", ce.Path())
}

func TestCompileExternal(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	c := NewStyleCompiler([]string{"cat"}, []string{".less"})
	out, err := c.Compile(context.Background(), "", "css/theme.less", []byte("b{margin:0}"))
	require.NoError(t, err)
	require.Equal(t, "b{margin:0}", string(out))

	_, err = NewStyleCompiler(nil, []string{".less"}).Compile(context.Background(), "", "css/theme.less", nil)
	require.True(t, errors.HasCategory(err, errors.CategoryTransform))

	_, err = c.Compile(context.Background(), "", "css/theme.styl", nil)
	require.True(t, errors.HasCategory(err, errors.CategoryTransform))
}

func TestCompileExternalRunsInSourceDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "_vars.less"), []byte("a{color:red}\n"), 0o600))

	c := NewStyleCompiler([]string{"sh", "-c", "cat _vars.less -"}, []string{".less"})
	out, err := c.Compile(context.Background(), root, "css/site.less", []byte("b{margin:0}"))
	require.NoError(t, err)
	require.Equal(t, "a{color:red}\nb{margin:0}", string(out))
}

func TestCompileExternalFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	_, err := NewStyleCompiler([]string{"false"}, []string{".scss"}).Compile(context.Background(), "", "css/x.scss", []byte("a{}"))
	require.True(t, errors.HasCategory(err, errors.CategoryTransform))
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, "css/a.css", OutputPath("css/a.css"))
	require.Equal(t, "css/a.css", OutputPath("css/a.less"))
	require.Equal(t, "css/sub/b.min.css", OutputPath("css/sub/b.min.scss"))
}

func TestMinifier(t *testing.T) {
	m := NewMinifier()

	js, err := m.Script("js/app.js", []byte("function add(a, b) {\n  return a + b;\n}\n"))
	require.NoError(t, err)
	require.Less(t, len(js), 38)

	css, err := m.Style("css/a.css", []byte("a {\n  color: #ff0000;\n}\n"))
	require.NoError(t, err)
	require.Equal(t, "a{color:red}", string(css))

	html, err := m.Markup("index.html", []byte("<html>\n  <body>\n    <script src=\"js/app-9f3e.js\"></script>\n  </body>\n</html>\n"))
	require.NoError(t, err)
	require.Contains(t, string(html), `<script src="js/app-9f3e.js"></script>`)
	require.Contains(t, string(html), "<html>")
}

func TestWriteSidecars(t *testing.T) {
	target := filepath.Join(t.TempDir(), "app-1234.js")
	data := []byte(strings.Repeat("console.log('assetrev');\n", 50))
	require.NoError(t, os.WriteFile(target, data, PublicFileMode))

	paths, err := WriteSidecars(target, data, []config.Codec{config.CodecGzip, config.CodecZstd})
	require.NoError(t, err)
	require.Equal(t, []string{target + ".gz", target + ".zst"}, paths)

	assetInfo, err := os.Stat(target)
	require.NoError(t, err)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.Equal(t, assetInfo.Mode().Perm(), info.Mode().Perm(), p)
	}

	gz, err := os.ReadFile(target + ".gz")
	require.NoError(t, err)
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, data, plain)

	zs, err := os.ReadFile(target + ".zst")
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err = dec.DecodeAll(zs, nil)
	require.NoError(t, err)
	require.Equal(t, data, plain)

	paths, err = WriteSidecars(target, data, nil)
	require.NoError(t, err)
	require.Empty(t, paths)
}
