package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	"github.com/canvasreview/internal/geometry"
	"github.com/canvasreview/pkg/models"
)

// Transport bounds for the payload handed to the generative model.
const (
	maxOutputDim = 1024
	jpegQuality  = 80
)

// Level tags how far down the degradation ladder the materializer got.
type Level string

const (
	// Cropped means the comment's region was extracted and encoded.
	Cropped Level = "cropped"
	// FullFrame means cropping failed and the whole render was encoded.
	FullFrame Level = "full_frame"
	// ReferenceOnly means encoding failed; only the render URL survives.
	ReferenceOnly Level = "reference_only"
	// Unavailable means no render could be fetched at all.
	Unavailable Level = "unavailable"
)

// Result is the bounded-size still image most relevant to a comment, or the
// best degradation the ladder could reach. Materialize never returns an
// error; every failure degrades the result instead of aborting the caller.
type Result struct {
	Level       Level
	ImageURL    string
	ImageBase64 string
}

// Renderer is the slice of the design API the materializer needs.
type Renderer interface {
	RenderImage(ctx context.Context, fileKey, nodeID string, scale float64) (string, error)
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}

// Materializer turns a comment anchor plus node metadata into an inline
// image payload.
type Materializer struct {
	renderer Renderer
}

func NewMaterializer(renderer Renderer) *Materializer {
	return &Materializer{renderer: renderer}
}

// Materialize walks the ladder: fetch render at the selected scale (retry
// once at the lowest tier), download, crop per the comment's geometry
// against the actual pixel dimensions, fit within the transport bound, and
// JPEG-encode. Each step that fails drops to the next level down.
func (m *Materializer) Materialize(ctx context.Context, fileKey string, node *models.Node, meta *models.ClientMeta) Result {
	scale := renderScale(node)

	url, err := m.renderer.RenderImage(ctx, fileKey, node.ID, scale)
	if err != nil {
		log.Warn().Err(err).Str("node_id", node.ID).Float64("scale", scale).
			Msg("render fetch failed, retrying at lowest scale")
		scale = 0.5
		url, err = m.renderer.RenderImage(ctx, fileKey, node.ID, scale)
		if err != nil {
			log.Warn().Err(err).Str("node_id", node.ID).Msg("render fetch failed at lowest scale")
			return Result{Level: Unavailable}
		}
	}

	raw, err := m.renderer.DownloadImage(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("node_id", node.ID).Msg("render download failed")
		return Result{Level: ReferenceOnly, ImageURL: url}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Warn().Err(err).Str("node_id", node.ID).Msg("render decode failed")
		return Result{Level: ReferenceOnly, ImageURL: url}
	}

	// The downloaded bitmap is the source of truth for geometry, not the
	// predicted node dimensions.
	bounds := src.Bounds()
	if encoded, err := m.cropAndEncode(src, meta, scale); err == nil {
		return Result{Level: Cropped, ImageURL: url, ImageBase64: encoded}
	} else {
		log.Debug().Err(err).Str("node_id", node.ID).
			Int("img_w", bounds.Dx()).Int("img_h", bounds.Dy()).
			Msg("crop failed, falling back to full frame")
	}

	if encoded, err := encodeBounded(src); err == nil {
		return Result{Level: FullFrame, ImageURL: url, ImageBase64: encoded}
	} else {
		log.Warn().Err(err).Str("node_id", node.ID).Msg("full-frame encode failed")
	}

	return Result{Level: ReferenceOnly, ImageURL: url}
}

func renderScale(node *models.Node) float64 {
	var w, h float64
	if node.AbsoluteBoundingBox != nil {
		w = node.AbsoluteBoundingBox.Width
		h = node.AbsoluteBoundingBox.Height
	}
	return geometry.SelectScale(w, h, node.Type)
}

func (m *Materializer) cropAndEncode(src image.Image, meta *models.ClientMeta, scale float64) (string, error) {
	bounds := src.Bounds()
	region, err := geometry.ResolveCrop(meta, scale, bounds.Dx(), bounds.Dy())
	if err != nil {
		return "", err
	}

	cropRect := image.Rect(0, 0, region.Width, region.Height)
	cropped := image.NewRGBA(cropRect)
	xdraw.Draw(cropped, cropRect, src, image.Point{
		X: bounds.Min.X + region.X,
		Y: bounds.Min.Y + region.Y,
	}, xdraw.Src)

	return encodeBounded(cropped)
}

// encodeBounded resizes img to fit within maxOutputDim on its longer side,
// preserving aspect ratio and never upscaling, then encodes JPEG at the
// fixed transport quality and returns the base64 payload.
func encodeBounded(img image.Image) (string, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("empty image %dx%d", w, h)
	}

	outW, outH := fitWithin(w, h, maxOutputDim)
	if outW != w || outH != h {
		dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func fitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	if w >= h {
		return bound, maxInt(1, int(float64(h)*float64(bound)/float64(w)))
	}
	return maxInt(1, int(float64(w)*float64(bound)/float64(h))), bound
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
