//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/renditionforge/internal/geometry"
)

type govipsTransformer struct{}

func (t govipsTransformer) Probe(ctx context.Context, src []byte) (int, int, error) {
	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	w, h := img.Width(), img.Height()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrDecode, w, h)
	}
	return w, h, nil
}

func (t govipsTransformer) Transform(ctx context.Context, src []byte, plan geometry.Plan, format string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	if plan.CropX+plan.CropWidth > img.Width() || plan.CropY+plan.CropHeight > img.Height() {
		return nil, fmt.Errorf("%w: crop %dx%d+%d+%d outside source %dx%d",
			ErrTransform, plan.CropWidth, plan.CropHeight, plan.CropX, plan.CropY, img.Width(), img.Height())
	}

	if err := img.ExtractArea(plan.CropX, plan.CropY, plan.CropWidth, plan.CropHeight); err != nil {
		return nil, fmt.Errorf("%w: extract area: %v", ErrTransform, err)
	}

	hscale := float64(plan.OutputWidth) / float64(plan.CropWidth)
	vscale := float64(plan.OutputHeight) / float64(plan.CropHeight)
	if err := img.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
		return nil, fmt.Errorf("%w: resize: %v", ErrTransform, err)
	}

	switch format {
	case "jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = jpegQuality
		data, _, err := img.ExportJpeg(params)
		if err != nil {
			return nil, fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
		}
		return data, nil
	case "png":
		data, _, err := img.ExportPng(vips.NewPngExportParams())
		if err != nil {
			return nil, fmt.Errorf("%w: png: %v", ErrEncode, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrEncode, format)
	}
}
