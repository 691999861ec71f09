package cdn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MirrorUploader stores objects in a local directory laid out like the
// remote bucket:
//
//	<base>/
//	  objects/<key>          object bytes
//	  meta/<key>.json        content hash, size, type, upload time
//
// It backs file:// endpoints for staging mirrors and tests.
type MirrorUploader struct {
	basePath string
	mu       sync.RWMutex
}

// ObjectMeta is the sidecar written next to each mirrored object.
type ObjectMeta struct {
	SHA256      string    `json:"sha256"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Uploads     int       `json:"uploads"`
}

// ErrNotFound is returned when a key has no object.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Key
}

// NewMirrorUploader creates the directory structure below basePath.
func NewMirrorUploader(basePath string) (*MirrorUploader, error) {
	for _, dir := range []string{filepath.Join(basePath, "objects"), filepath.Join(basePath, "meta")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &MirrorUploader{basePath: basePath}, nil
}

// Upload stores content under key. Re-uploading identical content only
// bumps the upload counter.
func (m *MirrorUploader) Upload(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectPath, err := m.objectPath(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	meta, err := m.readMeta(key)
	if err == nil && meta.SHA256 == hash {
		if _, statErr := os.Stat(objectPath); statErr == nil {
			meta.Uploads++
			meta.UploadedAt = time.Now().UTC()
			return m.writeMeta(key, meta)
		}
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(objectPath, content, 0o600); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return m.writeMeta(key, ObjectMeta{
		SHA256:      hash,
		Size:        int64(len(content)),
		ContentType: ContentType(key),
		UploadedAt:  time.Now().UTC(),
		Uploads:     1,
	})
}

// Get returns the stored bytes and metadata of key.
func (m *MirrorUploader) Get(ctx context.Context, key string) ([]byte, ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectMeta{}, err
	}
	objectPath, err := m.objectPath(key)
	if err != nil {
		return nil, ObjectMeta{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// #nosec G304 -- objectPath is confined to the mirror by objectPath()
	data, err := os.ReadFile(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectMeta{}, ErrNotFound{Key: key}
		}
		return nil, ObjectMeta{}, fmt.Errorf("read object: %w", err)
	}
	meta, err := m.readMeta(key)
	if err != nil {
		return data, ObjectMeta{}, err
	}
	return data, meta, nil
}

// List returns every stored key, sorted.
func (m *MirrorUploader) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	root := filepath.Join(m.basePath, "objects")
	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MirrorUploader) objectPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || strings.HasSuffix(key, "/") || clean != "/"+key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(m.basePath, "objects", filepath.FromSlash(key)), nil
}

func (m *MirrorUploader) metaPath(key string) string {
	return filepath.Join(m.basePath, "meta", filepath.FromSlash(key)+".json")
}

func (m *MirrorUploader) readMeta(key string) (ObjectMeta, error) {
	// #nosec G304 -- key validated by objectPath before any meta access
	data, err := os.ReadFile(m.metaPath(key))
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("read metadata: %w", err)
	}
	var meta ObjectMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ObjectMeta{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

func (m *MirrorUploader) writeMeta(key string, meta ObjectMeta) error {
	p := m.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
