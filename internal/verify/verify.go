// Package verify checks a built distribution tree for references that point
// at missing files or at originals that should have been revisioned.
package verify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/manifest"
)

// IssueKind classifies a verification finding.
type IssueKind string

const (
	IssueMissing      IssueKind = "missing"
	IssueUnrevisioned IssueKind = "unrevisioned"
)

// Issue is one broken reference.
type Issue struct {
	File   string    // dist-relative file containing the reference
	Ref    Reference // the reference as written
	Target string    // dist-relative resolved target
	Kind   IssueKind
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s %s=%q -> %s (%s)", i.File, i.Ref.Tag, i.Ref.Attribute, i.Ref.URL, i.Target, i.Kind)
}

// Report is the result of verifying a distribution tree.
type Report struct {
	Files      int
	References int
	Issues     []Issue
}

// OK reports whether no issues were found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Err returns a classified error summarizing the issues, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	first := r.Issues[0]
	return errors.NewError(errors.CategoryNotFound, "distribution tree has broken references").
		WithPath(first.File).
		WithContext("issues", len(r.Issues)).
		WithContext("first", first.String()).
		Build()
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// skipDirs are bookkeeping directories inside dist.
var skipDirs = map[string]bool{"rev": true, "css-tmp": true}

// Verify walks dist and checks every reference in markup and stylesheets.
// originals is the merged manifest; a reference resolving to one of its keys
// is reported as unrevisioned.
func Verify(ctx context.Context, dist string, originals manifest.Manifest) (*Report, error) {
	report := &Report{}
	err := filepath.WalkDir(dist, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dist, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skipDirs[rel] {
				return filepath.SkipDir
			}
			return nil
		}

		var refs []Reference
		switch strings.ToLower(path.Ext(rel)) {
		case ".html", ".htm":
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			if refs, err = ExtractMarkup(data); err != nil {
				return err
			}
		case ".css":
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			refs = ExtractCSS(data)
		default:
			return nil
		}
		report.Files++
		for _, ref := range refs {
			target, local := resolve(rel, ref.URL)
			if !local {
				continue
			}
			report.References++
			if _, ok := originals[target]; ok {
				report.Issues = append(report.Issues, Issue{File: rel, Ref: ref, Target: target, Kind: IssueUnrevisioned})
				continue
			}
			if _, err := os.Stat(filepath.Join(dist, filepath.FromSlash(target))); err != nil {
				report.Issues = append(report.Issues, Issue{File: rel, Ref: ref, Target: target, Kind: IssueMissing})
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ReadError("cannot verify distribution tree").WithCause(err).WithPath(dist).Build()
	}
	sort.SliceStable(report.Issues, func(i, j int) bool { return report.Issues[i].File < report.Issues[j].File })
	return report, nil
}

// resolve maps a reference in file to a dist-relative path. local is false
// for external, inline and fragment-only references.
func resolve(file, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") || schemeRe.MatchString(ref) {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", false
	}
	var target string
	if strings.HasPrefix(ref, "/") {
		target = path.Clean(ref)[1:]
	} else {
		target = path.Join(path.Dir(file), ref)
	}
	if target == "" || target == "." || strings.HasPrefix(target, "../") || target == ".." {
		return "", false
	}
	return target, true
}

// LoadManifests merges whatever class manifests exist below dist.
func LoadManifests(dist string) manifest.Manifest {
	var ms []manifest.Manifest
	for _, class := range []asset.Class{asset.ClassScript, asset.ClassImage, asset.ClassFont, asset.ClassStyle} {
		if m, err := manifest.Load(dist, class); err == nil {
			ms = append(ms, m)
		}
	}
	return manifest.Merge(ms...)
}
