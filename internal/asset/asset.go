// Package asset models the source files the pipeline revisions and rewrites.
package asset

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Class identifies the kind of asset; each class has its own source
// directory, manifest and CDN prefix.
type Class string

const (
	ClassScript Class = "script"
	ClassStyle  Class = "style"
	ClassMarkup Class = "markup"
	ClassImage  Class = "image"
	ClassFont   Class = "font"
)

// Classes lists every class in a stable order.
var Classes = []Class{ClassScript, ClassStyle, ClassMarkup, ClassImage, ClassFont}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	return slices.Contains(Classes, c)
}

// Asset is a source file read for one stage. Content is never mutated after Read.
type Asset struct {
	Path    string // relative to the source root, slash separated
	Class   Class
	Content []byte
}

// Normalize converts an OS path into the slash-separated, cleaned form used
// in manifests and references.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(p), "./")
}

// Read loads a single asset. A missing or unreadable file is a ReadError.
func Read(root, rel string, class Class) (*Asset, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, errors.ReadError("cannot read asset").
			WithCause(err).
			WithPath(rel).
			WithContext("class", string(class)).
			Build()
	}
	return &Asset{Path: Normalize(rel), Class: class, Content: data}, nil
}

// Discover walks root/dir and returns the files below it as paths relative to
// root, sorted. Only files whose lower-cased extension is in exts are kept
// (nil keeps everything). Hidden files and directories are skipped. A missing
// directory yields no files.
func Discover(ctx context.Context, root, dir string, exts []string) ([]string, error) {
	base := filepath.Join(root, filepath.FromSlash(dir))
	info, err := os.Stat(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ReadError("cannot stat source directory").WithCause(err).WithPath(dir).Build()
	}
	if !info.IsDir() {
		return nil, errors.ReadError("source path is not a directory").WithPath(dir).Build()
	}

	var files []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if p != base && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if exts != nil && !slices.Contains(exts, strings.ToLower(filepath.Ext(name))) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, Normalize(rel))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ReadError("cannot walk source directory").WithCause(err).WithPath(dir).Build()
	}
	slices.Sort(files)
	return files, nil
}

// RelativeTo strips dir from a root-relative path, e.g. ("js/a/b.js", "js") -> "a/b.js".
func RelativeTo(p, dir string) string {
	dir = Normalize(dir)
	if dir == "" || dir == "." {
		return p
	}
	if rest, ok := strings.CutPrefix(p, dir+"/"); ok {
		return rest
	}
	return p
}
