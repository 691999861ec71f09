package errors

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestClassifiedError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		expected string
	}{
		{
			name:     "message only",
			err:      ConfigError("configuration invalid").Build(),
			expected: "[config:fatal] configuration invalid",
		},
		{
			name:     "with cause",
			err:      WrapError(fmt.Errorf("permission denied"), CategoryWrite, "cannot write output").Build(),
			expected: "[write:error] cannot write output: permission denied",
		},
		{
			name:     "with path and cause",
			err:      ReadError("cannot read asset").WithPath("js/app.js").WithCause(fmt.Errorf("no such file")).Build(),
			expected: "[read:error] cannot read asset (js/app.js): no such file",
		},
		{
			name:     "with path only",
			err:      ManifestError("manifest missing").WithPath("rev/image/rev-manifest.json").Build(),
			expected: "[manifest:fatal] manifest missing (rev/image/rev-manifest.json)",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.expected {
				t.Errorf("Error() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestAsClassifiedThroughWrapping(t *testing.T) {
	inner := TransformError("malformed style").WithPath("css/site.css").Build()
	wrapped := fmt.Errorf("stage compile-styles: %w", inner)

	got, ok := AsClassified(wrapped)
	if !ok {
		t.Fatal("expected classified error in chain")
	}
	if got.Category() != CategoryTransform {
		t.Errorf("category = %s, want transform", got.Category())
	}
	if got.Path() != "css/site.css" {
		t.Errorf("path = %q", got.Path())
	}
	if !HasCategory(wrapped, CategoryTransform) {
		t.Error("HasCategory should see through wrapping")
	}
	if GetCategory(stdErrors.New("plain")) != CategoryInternal {
		t.Error("unclassified errors default to internal")
	}
}

func TestRetryClassification(t *testing.T) {
	if IsRetryable(ManifestError("missing").Build()) {
		t.Error("manifest errors must never be retried")
	}
	if IsRetryable(AuthError("denied").Build()) {
		t.Error("auth errors require user action")
	}
	if !IsRetryable(NetworkError("timeout").Build()) {
		t.Error("network errors are retryable")
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := UploadError("upload failed").WithContext("key", "js/a.js").Build()
	derived := base.WithContext("attempt", 3)
	if _, ok := base.Context().Get("attempt"); ok {
		t.Fatal("original context mutated")
	}
	if v, _ := derived.Context().Get("attempt"); v != 3 {
		t.Fatalf("derived attempt = %v", v)
	}
}

type codedError struct{ code int }

func (e codedError) Error() string { return "coded" }
func (e codedError) ExitCode() int { return e.code }

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"upload", UploadError("put failed").Build(), 8},
		{"read", ReadError("missing").Build(), 11},
		{"exit coder wins", fmt.Errorf("wrap: %w", codedError{code: 24}), 24},
		{"unclassified", stdErrors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := fmt.Errorf("stage compile-styles: %w",
		TransformError("malformed style").WithPath("css/site.css").Build())

	quiet := NewCLIErrorAdapter(false, slog.Default()).FormatError(err)
	if !strings.Contains(quiet, "compile-styles") || !strings.Contains(quiet, "css/site.css") {
		t.Errorf("quiet format lost stage or path: %q", quiet)
	}

	verbose := NewCLIErrorAdapter(true, slog.Default()).FormatError(err)
	if !strings.Contains(verbose, "path: css/site.css") {
		t.Errorf("verbose format should list context: %q", verbose)
	}
}
