// Package fingerprint derives content identifiers for cache-busted file names.
//
// A fingerprint is a pure function of the content bytes: the file name,
// directory and modification time never contribute, so identical content
// anywhere in the tree yields the same identifier.
package fingerprint

import (
	"context"
	"encoding/hex"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Delimiter separates the original stem from the fingerprint.
const Delimiter = "-"

// Engine computes fingerprints of a fixed length.
type Engine struct {
	length int
}

// New returns an Engine producing fingerprints of length hex characters,
// clamped to [8, 64].
func New(length int) *Engine {
	switch {
	case length < 8:
		length = 8
	case length > 64:
		length = 64
	}
	return &Engine{length: length}
}

// Length is the number of hex characters in each fingerprint.
func (e *Engine) Length() int { return e.length }

// Sum returns the fingerprint of content.
func (e *Engine) Sum(content []byte) string {
	digest := blake3.Sum256(content)
	return hex.EncodeToString(digest[:])[:e.length]
}

// RevisionedPath inserts fp before the extension of the base name:
// "js/app.js" -> "js/app-<fp>.js", "a/b.min.js" -> "a/b.min-<fp>.js",
// "LICENSE" -> "LICENSE-<fp>", ".htaccess" -> ".htaccess-<fp>".
func RevisionedPath(original, fp string) string {
	dir, base := path.Split(original)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// Dot-file without a further extension: the whole name is the stem.
		stem, ext = base, ""
	}
	return dir + stem + Delimiter + fp + ext
}

// Revision reads root/rel and returns its fingerprint and revisioned path.
func (e *Engine) Revision(ctx context.Context, root, rel string) (fp, revisioned string, content []byte, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", nil, err
	}
	content, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", "", nil, errors.ReadError("cannot read asset").WithCause(err).WithPath(rel).Build()
	}
	fp = e.Sum(content)
	return fp, RevisionedPath(rel, fp), content, nil
}

// Apply fingerprints in-memory content that has already been transformed.
func (e *Engine) Apply(rel string, content []byte) (fp, revisioned string) {
	fp = e.Sum(content)
	return fp, RevisionedPath(rel, fp)
}
