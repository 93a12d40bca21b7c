package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/dunamismax/renditionforge/internal/geometry"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

type stdlibTransformer struct{}

func (t stdlibTransformer) Probe(ctx context.Context, src []byte) (int, int, error) {
	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	default:
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func (t stdlibTransformer) Transform(ctx context.Context, src []byte, plan geometry.Plan, format string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	decoded, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := decoded.Bounds()
	cropRect := image.Rect(
		bounds.Min.X+plan.CropX,
		bounds.Min.Y+plan.CropY,
		bounds.Min.X+plan.CropX+plan.CropWidth,
		bounds.Min.Y+plan.CropY+plan.CropHeight,
	)
	if !cropRect.In(bounds) {
		return nil, fmt.Errorf("%w: crop %v outside source %v", ErrTransform, cropRect, bounds)
	}

	dst := image.NewRGBA(image.Rect(0, 0, plan.OutputWidth, plan.OutputHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, cropRect, draw.Src, nil)

	return encodeImage(dst, format)
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
		}
	case "png":
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: png: %v", ErrEncode, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrEncode, format)
	}

	return buf.Bytes(), nil
}
