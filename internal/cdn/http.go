package cdn

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/logfields"
)

const (
	// SignatureAlgorithm names the Authorization scheme of signed uploads.
	SignatureAlgorithm = "ASSETREV-HMAC-SHA256"

	HeaderDate          = "X-Assetrev-Date"
	HeaderContentSHA256 = "X-Assetrev-Content-Sha256"

	// CacheControl is sent with every object; names are content-addressed so
	// they never change.
	CacheControl = "public, max-age=31536000, immutable"
)

// StatusError is a non-2xx response from the object store.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether an upload error is transient: network errors,
// timeouts, 5xx and 429 responses. Auth (401/403) and not-found (404)
// responses are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if stdErrors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stdErrors.As(err, &ne)
}

// HTTPUploader PUTs objects to {endpoint}/{bucket}/{key} with an HMAC-SHA256
// request signature.
type HTTPUploader struct {
	client    *http.Client
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
	origin    string
	now       func() time.Time
	logger    *slog.Logger
}

// NewHTTPUploader returns an uploader for cfg. A nil client uses a plain
// http.Client; timeouts come from the per-call context.
func NewHTTPUploader(cfg config.CDNConfig, client *http.Client) *HTTPUploader {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPUploader{
		client:    client,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		bucket:    strings.Trim(cfg.Bucket, "/"),
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		origin:    strings.TrimRight(cfg.Origin, "/"),
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// ObjectURL is the upload URL for key.
func (u *HTTPUploader) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u.endpoint + "/" + url.PathEscape(u.bucket) + "/" + strings.Join(segments, "/")
}

// PublicURL is the address the object is served from: the configured origin
// when set, otherwise the upload URL.
func (u *HTTPUploader) PublicURL(key string) string {
	if u.origin == "" {
		return u.ObjectURL(key)
	}
	return u.origin + "/" + key
}

// Sign computes the hex HMAC-SHA256 of the canonical request.
func Sign(secret, method, resource, date, contentSHA256 string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{method, resource, date, contentSHA256}, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, key string, content []byte) error {
	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])
	date := u.now().UTC().Format(time.RFC3339)
	resource := "/" + u.bucket + "/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.ObjectURL(key), bytes.NewReader(content))
	if err != nil {
		return errors.InternalError("cannot build upload request").WithCause(err).WithContext("key", key).Build()
	}
	req.ContentLength = int64(len(content))
	req.Header.Set("Content-Type", ContentType(key))
	req.Header.Set("Content-Length", strconv.Itoa(len(content)))
	req.Header.Set("Cache-Control", CacheControl)
	req.Header.Set(HeaderDate, date)
	req.Header.Set(HeaderContentSHA256, contentHash)
	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s, Signature=%s",
		SignatureAlgorithm, u.accessKey, Sign(u.secretKey, http.MethodPut, resource, date, contentHash)))

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		u.logger.Debug("Object published", logfields.Key(key), logfields.URL(u.PublicURL(key)))
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

var fontTypes = map[string]string{
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
}

// ContentType picks the media type from the key's extension.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if t, ok := fontTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
