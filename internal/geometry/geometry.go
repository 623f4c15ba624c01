package geometry

import (
	"errors"
	"math"

	"github.com/canvasreview/pkg/models"
)

// MinViewport is the smallest crop we consider useful for analysis. Regions
// and pins smaller than this get padded up to a MinViewport square centered
// on them instead of being cropped tight.
const MinViewport = 800

// ErrInvalidCropGeometry signals that the resolved rectangle has no area
// inside the image. Callers fall back to the full frame.
var ErrInvalidCropGeometry = errors.New("crop region falls outside image bounds")

// Render scale tiers. Large nodes are rendered at reduced scale to keep the
// bitmap bounded; small nodes get a 2x render so crops stay sharp.
const (
	scaleLow  = 0.5
	scaleMid  = 1
	scaleHigh = 2
)

// SelectScale picks the render scale for a node from its bounding-box size.
// Whole-canvas node types are always rendered at the lowest tier no matter
// how they measure.
func SelectScale(width, height float64, nodeType string) float64 {
	scale := scaleByDimensions(width, height)
	if isWholePage(nodeType) && scale > scaleLow {
		return scaleLow
	}
	return scale
}

func scaleByDimensions(width, height float64) float64 {
	maxDim := math.Max(width, height)
	switch {
	case maxDim > 4000:
		return scaleLow
	case maxDim > 2000:
		return scaleMid
	default:
		return scaleHigh
	}
}

func isWholePage(nodeType string) bool {
	switch nodeType {
	case "CANVAS", "DOCUMENT", "PAGE":
		return true
	}
	return false
}

// ResolveCrop computes the integer crop rectangle for a comment anchor
// against an image of imgW x imgH pixels rendered at the given scale.
//
// Region comments resolve the rectangle's top-left corner from the stored
// pin corner (the offset names that corner of the rectangle), then either
// use the region as-is when it is at least MinViewport on its longer side,
// or re-center a MinViewport square on the region's centroid. Point
// comments center a MinViewport square on the scaled pin offset.
func ResolveCrop(meta *models.ClientMeta, scale float64, imgW, imgH int) (models.CropRegion, error) {
	if meta == nil || meta.NodeOffset == nil {
		return models.CropRegion{}, ErrInvalidCropGeometry
	}

	ox := meta.NodeOffset.X * scale
	oy := meta.NodeOffset.Y * scale

	var x, y, w, h float64
	if meta.RegionWidth > 0 && meta.RegionHeight > 0 {
		rw := meta.RegionWidth * scale
		rh := meta.RegionHeight * scale
		x, y = regionTopLeft(ox, oy, rw, rh, meta.CommentPinCorner)
		if math.Max(rw, rh) >= MinViewport {
			w, h = rw, rh
		} else {
			// Small region: pad up to a comfortable analysis window
			// centered on the region's centroid.
			cx := x + rw/2
			cy := y + rh/2
			x = cx - MinViewport/2
			y = cy - MinViewport/2
			w, h = MinViewport, MinViewport
		}
	} else {
		x = ox - MinViewport/2
		y = oy - MinViewport/2
		w, h = MinViewport, MinViewport
	}

	return clamp(x, y, w, h, imgW, imgH)
}

// regionTopLeft converts a pin offset that names one corner of the region
// rectangle into the rectangle's top-left corner. The default corner is
// bottom-right, matching how region comments store their anchor.
func regionTopLeft(ox, oy, w, h float64, corner string) (float64, float64) {
	switch corner {
	case "top-left":
		return ox, oy
	case "top-right":
		return ox - w, oy
	case "bottom-left":
		return ox, oy - h
	case "bottom-right":
		return ox - w, oy - h
	default:
		return ox - w, oy - h
	}
}

func clamp(x, y, w, h float64, imgW, imgH int) (models.CropRegion, error) {
	r := models.CropRegion{
		X:      int(math.Max(0, math.Round(x))),
		Y:      int(math.Max(0, math.Round(y))),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}
	if r.X+r.Width > imgW {
		r.Width = imgW - r.X
	}
	if r.Y+r.Height > imgH {
		r.Height = imgH - r.Y
	}
	if r.Width <= 0 || r.Height <= 0 {
		return models.CropRegion{}, ErrInvalidCropGeometry
	}
	return r, nil
}
