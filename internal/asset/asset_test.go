package asset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "js/b.js", "b")
	writeFile(t, root, "js/a.js", "a")
	writeFile(t, root, "js/lib/c.JS", "c")
	writeFile(t, root, "js/readme.txt", "x")
	writeFile(t, root, "js/.hidden.js", "h")
	writeFile(t, root, "js/.cache/d.js", "d")

	files, err := Discover(context.Background(), root, "js", []string{".js"})
	require.NoError(t, err)
	require.Equal(t, []string{"js/a.js", "js/b.js", "js/lib/c.JS"}, files)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	files, err := Discover(context.Background(), t.TempDir(), "fonts", nil)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestReadMissingIsReadError(t *testing.T) {
	_, err := Read(t.TempDir(), "js/missing.js", ClassScript)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryRead))
	ce, _ := errors.AsClassified(err)
	require.Equal(t, "js/missing.js", ce.Path())
}

func TestNormalizeAndRelativeTo(t *testing.T) {
	require.Equal(t, "js/app.js", Normalize("./js//app.js"))
	require.Equal(t, "app.js", RelativeTo("js/app.js", "js/"))
	require.Equal(t, "sub/app.js", RelativeTo("js/sub/app.js", "./js"))
	require.Equal(t, "css/app.css", RelativeTo("css/app.css", "js"))
	require.True(t, ClassFont.Valid())
	require.False(t, Class("video").Valid())
}
