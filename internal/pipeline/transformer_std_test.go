package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/dunamismax/renditionforge/internal/geometry"
)

func TestStdlibTransformerProbe(t *testing.T) {
	src := buildTestPNG(t, 240, 120)

	w, h, err := stdlibTransformer{}.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if w != 240 || h != 120 {
		t.Fatalf("expected 240x120, got %dx%d", w, h)
	}
}

func TestStdlibTransformerProbeRejectsGarbage(t *testing.T) {
	_, _, err := stdlibTransformer{}.Probe(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestStdlibTransformerCropAndResize(t *testing.T) {
	src := buildTestPNG(t, 240, 120)
	plan := geometry.Plan{
		CropX:        60,
		CropY:        0,
		CropWidth:    120,
		CropHeight:   120,
		OutputWidth:  40,
		OutputHeight: 40,
	}

	out, err := stdlibTransformer{}.Transform(context.Background(), src, plan, "png")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png output, got %s", format)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 40 {
		t.Fatalf("expected 40x40 output, got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestStdlibTransformerKeepsJPEGFormat(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode source jpeg: %v", err)
	}

	plan := geometry.Plan{CropWidth: 64, CropHeight: 32, OutputWidth: 32, OutputHeight: 16}
	out, err := stdlibTransformer{}.Transform(context.Background(), buf.Bytes(), plan, "jpeg")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	_, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
}

func TestStdlibTransformerRejectsOutOfBoundsCrop(t *testing.T) {
	src := buildTestPNG(t, 100, 100)
	plan := geometry.Plan{
		CropX:        50,
		CropY:        50,
		CropWidth:    100,
		CropHeight:   100,
		OutputWidth:  10,
		OutputHeight: 10,
	}

	_, err := stdlibTransformer{}.Transform(context.Background(), src, plan, "png")
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("expected ErrTransform, got %v", err)
	}
}

func TestStdlibTransformerRejectsUnknownFormat(t *testing.T) {
	src := buildTestPNG(t, 10, 10)
	plan := geometry.Plan{CropWidth: 10, CropHeight: 10, OutputWidth: 5, OutputHeight: 5}

	_, err := stdlibTransformer{}.Transform(context.Background(), src, plan, "webp")
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestEncodableFormat(t *testing.T) {
	cases := []struct {
		key    string
		format string
		ok     bool
	}{
		{"original/abc/photo.jpg", "jpeg", true},
		{"original/abc/photo.jpeg", "jpeg", true},
		{"original/abc/photo.png", "png", true},
		{"original/abc/photo.gif", "", false},
		{"original/abc/photo.JPG", "", false},
		{"original/abc/photo", "", false},
		{"original/ab.c/photo", "", false},
	}

	for _, tc := range cases {
		format, ok := encodableFormat(tc.key)
		if ok != tc.ok || format != tc.format {
			t.Fatalf("encodableFormat(%q) = (%q, %v), expected (%q, %v)", tc.key, format, ok, tc.format, tc.ok)
		}
	}
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
