package geometry

import (
	"math"

	"github.com/dunamismax/renditionforge/internal/domain"
)

// Plan is the crop rectangle and output dimensions for one rendition.
// CropX/CropY are offsets into the decoded source; the output dimensions
// are the crop rectangle scaled uniformly to fit the spec's bounding box.
type Plan struct {
	CropX        int
	CropY        int
	CropWidth    int
	CropHeight   int
	OutputWidth  int
	OutputHeight int
}

// Compute maps decoded source dimensions and a size spec to a Plan. It is
// pure and total over positive dimensions; callers reject zero or negative
// dimensions before calling.
//
// With crop enabled the retained region is a centered square with side
// min(srcWidth, srcHeight). A square source takes the portrait branch, so
// its crop offset stays at the origin. The scaling factor is always
// computed against the crop rectangle, never the pre-crop source: the
// pipeline crops first and resizes what remains.
func Compute(srcWidth, srcHeight int, spec domain.SizeSpec) Plan {
	p := Plan{
		CropWidth:  srcWidth,
		CropHeight: srcHeight,
	}

	if spec.Crop {
		if srcWidth > srcHeight {
			p.CropWidth = srcHeight
			p.CropHeight = srcHeight
			p.CropX = (srcWidth - srcHeight) / 2
		} else {
			p.CropWidth = srcWidth
			p.CropHeight = srcWidth
			p.CropY = (srcHeight - srcWidth) / 2
		}
	}

	factor := math.Min(
		float64(spec.MaxWidth)/float64(p.CropWidth),
		float64(spec.MaxHeight)/float64(p.CropHeight),
	)

	p.OutputWidth = int(math.Round(factor * float64(p.CropWidth)))
	p.OutputHeight = int(math.Round(factor * float64(p.CropHeight)))
	return p
}
