package cdn

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// NewUploader picks the uploader for the configured endpoint: file:// goes to
// a MirrorUploader, http(s) to an HTTPUploader.
func NewUploader(cfg config.CDNConfig) (Uploader, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, errors.ConfigError("invalid cdn.endpoint").WithCause(err).WithContext("endpoint", cfg.Endpoint).Build()
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		dir := u.Path
		if u.Host != "" && u.Host != "localhost" {
			dir = u.Host + u.Path
		}
		m, err := NewMirrorUploader(dir)
		if err != nil {
			return nil, errors.WriteError("cannot prepare mirror directory").WithCause(err).WithPath(dir).Build()
		}
		return m, nil
	case "http", "https":
		return NewHTTPUploader(cfg, nil), nil
	default:
		return nil, errors.ConfigError("unsupported cdn.endpoint scheme").WithContext("endpoint", cfg.Endpoint).Build()
	}
}
