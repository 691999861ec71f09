package cdn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMirrorUploader(t *testing.T) {
	ctx := context.Background()
	m, err := NewMirrorUploader(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Upload(ctx, "imgs/logo-ab12.png", []byte("png")))
	require.NoError(t, m.Upload(ctx, "imgs/logo-ab12.png", []byte("png")))
	require.NoError(t, m.Upload(ctx, "js/app-9f3e.js", []byte("js")))

	data, meta, err := m.Get(ctx, "imgs/logo-ab12.png")
	require.NoError(t, err)
	require.Equal(t, []byte("png"), data)
	require.Equal(t, 2, meta.Uploads)
	require.Equal(t, int64(3), meta.Size)
	require.Equal(t, "image/png", meta.ContentType)

	keys, err := m.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"imgs/logo-ab12.png", "js/app-9f3e.js"}, keys)

	_, _, err = m.Get(ctx, "imgs/missing.png")
	require.ErrorAs(t, err, &ErrNotFound{})
}

func TestMirrorUploaderRejectsEscapingKeys(t *testing.T) {
	m, err := NewMirrorUploader(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "../x.js", "a/../../x.js", "dir/", "a//b.js"} {
		require.Error(t, m.Upload(context.Background(), key, []byte("x")), key)
	}
}

func TestMirrorThroughGate(t *testing.T) {
	m, err := NewMirrorUploader(t.TempDir())
	require.NoError(t, err)
	g := NewGate(true, m, Options{Concurrency: 2, Policy: fastPolicy(0)})

	require.NoError(t, g.Sync(context.Background(), artifacts("a-1.woff", "sub/b-2.ttf"), "fonts"))
	keys, err := m.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"fonts/a-1.woff", "fonts/sub/b-2.ttf"}, keys)
}
