package pipeline

import (
	"context"
	"errors"

	"github.com/dunamismax/renditionforge/internal/geometry"
)

var (
	ErrDecode    = errors.New("decode source image")
	ErrTransform = errors.New("crop rectangle out of bounds")
	ErrEncode    = errors.New("encode rendition")
)

// Transformer turns source image bytes into rendition bytes. Probe reports
// the decoded dimensions so the geometry planner can run before the full
// transform; Transform applies one plan and re-encodes in format.
type Transformer interface {
	Probe(ctx context.Context, src []byte) (width, height int, err error)
	Transform(ctx context.Context, src []byte, plan geometry.Plan, format string) ([]byte, error)
}

// encodableFormat maps an object key's extension to the encode format, or
// reports false for types the pipeline does not produce. The match is
// case-sensitive on purpose: uppercase extensions are skipped the same way
// any other unsupported type is.
func encodableFormat(key string) (string, bool) {
	dot := -1
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			dot = i
			break
		}
		if key[i] == '/' {
			break
		}
	}
	if dot < 0 {
		return "", false
	}

	switch key[dot+1:] {
	case "jpg", "jpeg":
		return "jpeg", true
	case "png":
		return "png", true
	default:
		return "", false
	}
}

func contentTypeForFormat(format string) string {
	if format == "jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}
