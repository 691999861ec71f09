package transform

import (
	"bytes"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// PublicFileMode is the mode of every file published to the distribution
// tree, sidecars included.
const PublicFileMode os.FileMode = 0o644

// zstdEncoder is shared; EncodeAll is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic("transform: zstd encoder initialization failed: " + err.Error())
	}
}

// Compress encodes data with codec.
func Compress(codec config.Codec, data []byte) ([]byte, error) {
	switch codec {
	case config.CodecGzip:
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case config.CodecZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	default:
		return nil, errors.InternalError("unknown precompression codec").WithContext("codec", string(codec)).Build()
	}
}

// WriteSidecars writes one compressed sibling of target per codec
// (target.gz, target.zst) and returns their paths.
func WriteSidecars(target string, data []byte, codecs []config.Codec) ([]string, error) {
	written := make([]string, 0, len(codecs))
	for _, codec := range codecs {
		out, err := Compress(codec, data)
		if err != nil {
			return written, errors.WrapError(err, errors.CategoryTransform, "precompression failed").
				WithPath(target).
				WithContext("codec", string(codec)).
				Build()
		}
		p := target + codec.Extension()
		// #nosec G306 -- published assets are world-readable
		if err := os.WriteFile(p, out, PublicFileMode); err != nil {
			return written, errors.WriteError("cannot write compressed sidecar").WithCause(err).WithPath(p).Build()
		}
		written = append(written, p)
	}
	return written, nil
}
