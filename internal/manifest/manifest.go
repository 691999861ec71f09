// Package manifest records original -> revisioned path mappings and persists
// them as the intermediate documents handed from one stage to the next.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"git.home.luguber.info/inful/assetrev/internal/asset"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
)

// FileName is the manifest document name inside each class directory.
const FileName = "rev-manifest.json"

// RevisionRecord maps one original path to its revisioned path.
type RevisionRecord struct {
	Original   string `json:"original"`
	Revisioned string `json:"revisioned"`
}

// Manifest maps original relative paths to revisioned relative paths.
type Manifest map[string]string

// Records returns the manifest as records sorted by original path.
func (m Manifest) Records() []RevisionRecord {
	out := make([]RevisionRecord, 0, len(m))
	for _, k := range m.Keys() {
		out = append(out, RevisionRecord{Original: k, Revisioned: m[k]})
	}
	return out
}

// Keys returns the original paths in sorted order.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the revisioned path for original.
func (m Manifest) Lookup(original string) (string, bool) {
	v, ok := m[original]
	return v, ok
}

// Validate checks that no two originals share a revisioned path.
func (m Manifest) Validate() error {
	owners := make(map[string]string, len(m))
	for _, k := range m.Keys() {
		v := m[k]
		if k == "" || v == "" {
			return errors.ManifestError("manifest contains an empty path").WithContext("original", k).Build()
		}
		if prev, dup := owners[v]; dup {
			return errors.ManifestError("revisioned path is not unique").
				WithContext("revisioned", v).
				WithContext("originals", []string{prev, k}).
				Build()
		}
		owners[v] = k
	}
	return nil
}

// Merge unions manifests keyed by original path. When a key appears in more
// than one manifest, the manifest passed later wins.
func Merge(ms ...Manifest) Manifest {
	size := 0
	for _, m := range ms {
		size += len(m)
	}
	out := make(Manifest, size)
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Serialize renders the manifest as a JSON object with sorted keys, two-space
// indentation and a trailing newline. Equal manifests serialize to equal bytes.
func Serialize(m Manifest) ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]string(m)); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a manifest document. Anything other than a flat object of
// string values is a ManifestError.
func Parse(data []byte) (Manifest, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ManifestError("malformed manifest document").WithCause(err).Build()
	}
	if m == nil {
		return nil, errors.ManifestError("manifest document is not an object").Build()
	}
	return Manifest(m), nil
}

// Path returns the canonical manifest location for a class below dist.
func Path(dist string, class asset.Class) string {
	return filepath.Join(dist, "rev", string(class), FileName)
}

// Write persists m for class below dist after checking that revisioned paths
// are unique. The document is written to a temp
// file and renamed into place so readers never see a partial manifest.
func Write(dist string, class asset.Class, m Manifest) (string, error) {
	target := Path(dist, class)
	if err := m.Validate(); err != nil {
		ce, _ := errors.AsClassified(err)
		return "", ce.WithContext("path", target).WithContext("class", string(class))
	}
	data, err := Serialize(m)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "cannot serialize manifest").Build()
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", errors.WriteError("cannot create manifest directory").WithCause(err).WithPath(target).Build()
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".rev-manifest-*")
	if err != nil {
		return "", errors.WriteError("cannot create manifest").WithCause(err).WithPath(target).Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", errors.WriteError("cannot write manifest").WithCause(err).WithPath(target).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.WriteError("cannot write manifest").WithCause(err).WithPath(target).Build()
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.WriteError("cannot move manifest into place").WithCause(err).WithPath(target).Build()
	}
	return target, nil
}

// Load reads the manifest for class below dist. A missing document means a
// dependency was declared wrong or its producer never ran; it is a
// ManifestError and is never retried.
func Load(dist string, class asset.Class) (Manifest, error) {
	p := Path(dist, class)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.ManifestError("expected manifest not found").
			WithCause(err).
			WithPath(p).
			WithContext("class", string(class)).
			Build()
	}
	m, err := Parse(data)
	if err != nil {
		ce, _ := errors.AsClassified(err)
		return nil, ce.WithContext("path", p).WithContext("class", string(class))
	}
	return m, nil
}

// LoadAll loads and merges the manifests of classes in the given order, so a
// later class wins on key collision.
func LoadAll(dist string, classes ...asset.Class) (Manifest, error) {
	ms := make([]Manifest, 0, len(classes))
	for _, class := range classes {
		m, err := Load(dist, class)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return Merge(ms...), nil
}

// Recorder accumulates records per class while a stage runs. It is safe for
// concurrent use by the stage's workers.
type Recorder struct {
	mu        sync.Mutex
	manifests map[asset.Class]Manifest
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{manifests: make(map[asset.Class]Manifest)}
}

// Record adds original -> revisioned to the active manifest for class. A
// repeated original replaces the earlier record.
func (r *Recorder) Record(original, revisioned string, class asset.Class) RevisionRecord {
	rec := RevisionRecord{Original: asset.Normalize(original), Revisioned: asset.Normalize(revisioned)}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.manifests[class]
	if !ok {
		m = make(Manifest)
		r.manifests[class] = m
	}
	if prev, dup := m[rec.Original]; dup && prev != rec.Revisioned {
		slog.Debug("Replacing revision record",
			logfields.Class(string(class)),
			logfields.Path(rec.Original),
			slog.String("previous", prev),
			logfields.Revisioned(rec.Revisioned))
	}
	m[rec.Original] = rec.Revisioned
	return rec
}

// Manifest returns a copy of the manifest accumulated for class.
func (r *Recorder) Manifest(class asset.Class) Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Merge(r.manifests[class])
}
