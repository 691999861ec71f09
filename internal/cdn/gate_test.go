package cdn

import (
	"context"
	stdErrors "errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/retry"
)

type recordingUploader struct {
	mu    sync.Mutex
	keys  []string
	calls atomic.Int32
	fail  func(key string, call int32) error
}

func (r *recordingUploader) Upload(ctx context.Context, key string, _ []byte) error {
	n := r.calls.Add(1)
	if r.fail != nil {
		if err := r.fail(key, n); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func fastPolicy(retries int) retry.Policy {
	return retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, retries)
}

func artifacts(paths ...string) []Artifact {
	out := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		out = append(out, Artifact{Path: p, Content: []byte(p)})
	}
	return out
}

func TestSyncDisabledMakesNoCalls(t *testing.T) {
	up := &recordingUploader{}
	g := NewGate(false, up, Options{Concurrency: 4})

	require.False(t, g.Enabled())
	require.NoError(t, g.Sync(context.Background(), artifacts("app-1.js", "lib-2.js"), "js"))
	require.Zero(t, up.calls.Load())

	require.NoError(t, Disabled().Sync(context.Background(), artifacts("x.js"), "js"))
}

func TestSyncUploadsWithClassPrefix(t *testing.T) {
	up := &recordingUploader{}
	g := NewGate(true, up, Options{Concurrency: 3, Policy: fastPolicy(0)})

	err := g.Sync(context.Background(), artifacts("app-1.js", "vendor/lib-2.js", "/abs-3.js"), "js")
	require.NoError(t, err)

	sort.Strings(up.keys)
	require.Equal(t, []string{"js/abs-3.js", "js/app-1.js", "js/vendor/lib-2.js"}, up.keys)
}

func TestKey(t *testing.T) {
	require.Equal(t, "imgs/logo-ab12.png", Key("imgs", "logo-ab12.png"))
	require.Equal(t, "imgs/logo-ab12.png", Key("/imgs/", "/logo-ab12.png"))
	require.Equal(t, "logo-ab12.png", Key("", "logo-ab12.png"))
}

func TestSyncFirstFailureAborts(t *testing.T) {
	up := &recordingUploader{fail: func(key string, _ int32) error {
		if key == "css/bad-1.css" {
			return &StatusError{StatusCode: http.StatusForbidden}
		}
		return nil
	}}
	g := NewGate(true, up, Options{Concurrency: 1, Policy: fastPolicy(3)})

	err := g.Sync(context.Background(), artifacts("bad-1.css", "a-2.css", "b-3.css"), "css")
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryUpload, ce.Category())
	require.Equal(t, "bad-1.css", ce.Path())
	key, _ := ce.Context().GetString("key")
	require.Equal(t, "css/bad-1.css", key)

	// 403 is never retried and nothing after the failure is uploaded.
	require.Equal(t, int32(1), up.calls.Load())
	require.Empty(t, up.keys)
}

func TestSyncRetriesTransient(t *testing.T) {
	up := &recordingUploader{fail: func(_ string, call int32) error {
		if call < 3 {
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	}}
	g := NewGate(true, up, Options{Concurrency: 1, Policy: fastPolicy(3)})

	require.NoError(t, g.Sync(context.Background(), artifacts("font-1.woff2"), "fonts"))
	require.Equal(t, int32(3), up.calls.Load())
	require.Equal(t, []string{"fonts/font-1.woff2"}, up.keys)
}

func TestSyncRetryBudgetExhausted(t *testing.T) {
	up := &recordingUploader{fail: func(string, int32) error {
		return &StatusError{StatusCode: http.StatusTooManyRequests}
	}}
	g := NewGate(true, up, Options{Concurrency: 2, Policy: fastPolicy(2)})

	err := g.Sync(context.Background(), artifacts("a.png"), "imgs")
	require.True(t, errors.HasCategory(err, errors.CategoryUpload))
	var se *StatusError
	require.True(t, stdErrors.As(err, &se))
	require.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	require.Equal(t, int32(3), up.calls.Load())
}

func TestSyncPerCallTimeout(t *testing.T) {
	slow := uploaderFunc(func(ctx context.Context, key string, content []byte) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g := NewGate(true, slow, Options{Concurrency: 1, Timeout: 5 * time.Millisecond, Policy: fastPolicy(1)})

	err := g.Sync(context.Background(), artifacts("a.js"), "js")
	require.True(t, errors.HasCategory(err, errors.CategoryUpload))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSyncParentCanceled(t *testing.T) {
	up := &recordingUploader{}
	g := NewGate(true, up, Options{Concurrency: 2, Policy: fastPolicy(0)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Sync(ctx, artifacts("a.js", "b.js"), "js")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, up.keys)
}

type uploaderFunc func(ctx context.Context, key string, content []byte) error

func (f uploaderFunc) Upload(ctx context.Context, key string, content []byte) error {
	return f(ctx, key, content)
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(&StatusError{StatusCode: 500}))
	require.True(t, Retryable(&StatusError{StatusCode: 429}))
	require.False(t, Retryable(&StatusError{StatusCode: 401}))
	require.False(t, Retryable(&StatusError{StatusCode: 403}))
	require.False(t, Retryable(&StatusError{StatusCode: 404}))
	require.True(t, Retryable(context.DeadlineExceeded))
	require.False(t, Retryable(stdErrors.New("disk full")))
	require.False(t, Retryable(nil))
}
