package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

func TestSumIsDeterministic(t *testing.T) {
	e := New(10)
	content := []byte("body { color: red }")
	a, b := e.Sum(content), e.Sum(content)
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if len(a) != 10 {
		t.Fatalf("expected 10 chars, got %d (%s)", len(a), a)
	}
}

func TestSumChangesWithOneByte(t *testing.T) {
	e := New(10)
	base := []byte("console.log('hello')")
	seen := map[string]int{e.Sum(base): -1}
	for i := range base {
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0x01
		fp := e.Sum(mutated)
		if prev, dup := seen[fp]; dup {
			t.Fatalf("byte flip at %d collides with %d: %s", i, prev, fp)
		}
		seen[fp] = i
	}
}

func TestLengthClamp(t *testing.T) {
	if l := New(2).Length(); l != 8 {
		t.Fatalf("expected clamp to 8, got %d", l)
	}
	if l := New(100).Length(); l != 64 {
		t.Fatalf("expected clamp to 64, got %d", l)
	}
}

func TestRevisionedPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"app.js", "app-abc.js"},
		{"js/app.js", "js/app-abc.js"},
		{"js/vendor/jquery.min.js", "js/vendor/jquery.min-abc.js"},
		{"fonts/LICENSE", "fonts/LICENSE-abc"},
		{"img/.htaccess", "img/.htaccess-abc"},
	}
	for _, c := range cases {
		if got := RevisionedPath(c.in, "abc"); got != c.want {
			t.Errorf("RevisionedPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRevisionIgnoresNameAndLocation(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"img/a.png", "img/deep/b.png"} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("same-bytes"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	e := New(10)
	fpA, revA, _, err := e.Revision(context.Background(), root, "img/a.png")
	if err != nil {
		t.Fatal(err)
	}
	fpB, revB, _, err := e.Revision(context.Background(), root, "img/deep/b.png")
	if err != nil {
		t.Fatal(err)
	}
	if fpA != fpB {
		t.Fatalf("identical content should share fingerprint: %s vs %s", fpA, fpB)
	}
	if revA != "img/a-"+fpA+".png" || revB != "img/deep/b-"+fpB+".png" {
		t.Fatalf("unexpected revisioned paths %s %s", revA, revB)
	}
}

func TestRevisionMissingFileIsReadError(t *testing.T) {
	_, _, _, err := New(10).Revision(context.Background(), t.TempDir(), "js/missing.js")
	if !errors.HasCategory(err, errors.CategoryRead) {
		t.Fatalf("expected read error, got %v", err)
	}
}
