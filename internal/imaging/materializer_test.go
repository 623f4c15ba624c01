package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canvasreview/pkg/models"
)

type fakeRenderer struct {
	renderErrs  []error // consumed per RenderImage call; nil means success
	scalesSeen  []float64
	imageBytes  []byte
	downloadErr error
}

func (f *fakeRenderer) RenderImage(_ context.Context, _, _ string, scale float64) (string, error) {
	f.scalesSeen = append(f.scalesSeen, scale)
	if len(f.renderErrs) > 0 {
		err := f.renderErrs[0]
		f.renderErrs = f.renderErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "https://renders.example.com/node.png", nil
}

func (f *fakeRenderer) DownloadImage(_ context.Context, _ string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.imageBytes, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x % 251), G: uint8(y % 251), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeResult(t *testing.T, r Result) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func smallFrameNode() *models.Node {
	return &models.Node{
		ID:   "1:2",
		Type: "FRAME",
		Name: "Card",
		AbsoluteBoundingBox: &models.BoundingBox{Width: 1200, Height: 900},
	}
}

func pinMeta(x, y float64) *models.ClientMeta {
	return &models.ClientMeta{
		NodeID:     "1:2",
		NodeOffset: &models.Vector{X: x, Y: y},
	}
}

func TestMaterializeCropsRegion(t *testing.T) {
	renderer := &fakeRenderer{imageBytes: pngBytes(t, 2400, 1800)}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(600, 450))

	require.Equal(t, Cropped, result.Level)
	require.NotEmpty(t, result.ImageBase64)
	require.Equal(t, "https://renders.example.com/node.png", result.ImageURL)

	// An 800x800 viewport crop fits inside the transport bound untouched.
	img := decodeResult(t, result)
	require.Equal(t, 800, img.Bounds().Dx())
	require.Equal(t, 800, img.Bounds().Dy())
}

func TestMaterializeBoundsLargeCrop(t *testing.T) {
	renderer := &fakeRenderer{imageBytes: pngBytes(t, 2400, 1800)}
	m := NewMaterializer(renderer)
	meta := &models.ClientMeta{
		NodeID:           "1:2",
		NodeOffset:       &models.Vector{X: 0, Y: 0},
		RegionWidth:      1000,
		RegionHeight:     600,
		CommentPinCorner: "top-left",
	}

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), meta)
	require.Equal(t, Cropped, result.Level)

	// 2000x1200 at render scale 2, resized to fit 1024 on the long side.
	img := decodeResult(t, result)
	require.Equal(t, 1024, img.Bounds().Dx())
	require.LessOrEqual(t, img.Bounds().Dy(), 1024)
}

func TestMaterializeFallsBackToFullFrame(t *testing.T) {
	// Pin far outside the bitmap makes the crop geometry invalid; the
	// ladder must still produce an inline image from the full frame.
	renderer := &fakeRenderer{imageBytes: pngBytes(t, 640, 480)}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(90000, 90000))

	require.Equal(t, FullFrame, result.Level)
	require.NotEmpty(t, result.ImageBase64)

	// Small frames are never upscaled.
	img := decodeResult(t, result)
	require.Equal(t, 640, img.Bounds().Dx())
	require.Equal(t, 480, img.Bounds().Dy())
}

func TestMaterializeUndecodableBitmapKeepsReference(t *testing.T) {
	renderer := &fakeRenderer{imageBytes: []byte("not an image")}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(10, 10))

	require.Equal(t, ReferenceOnly, result.Level)
	require.Empty(t, result.ImageBase64)
	require.Equal(t, "https://renders.example.com/node.png", result.ImageURL)
}

func TestMaterializeDownloadFailureKeepsReference(t *testing.T) {
	renderer := &fakeRenderer{downloadErr: errors.New("connection reset")}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(10, 10))

	require.Equal(t, ReferenceOnly, result.Level)
	require.Equal(t, "https://renders.example.com/node.png", result.ImageURL)
}

func TestMaterializeRetriesRenderAtLowestScale(t *testing.T) {
	renderer := &fakeRenderer{
		renderErrs: []error{errors.New("timeout"), nil},
		imageBytes: pngBytes(t, 640, 480),
	}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(90000, 90000))

	require.NotEqual(t, Unavailable, result.Level)
	require.Equal(t, []float64{2, 0.5}, renderer.scalesSeen)
}

func TestMaterializeUnavailableWhenRenderNeverSucceeds(t *testing.T) {
	renderer := &fakeRenderer{
		renderErrs: []error{errors.New("timeout"), errors.New("timeout")},
	}
	m := NewMaterializer(renderer)

	result := m.Materialize(context.Background(), "file-key", smallFrameNode(), pinMeta(10, 10))

	require.Equal(t, Unavailable, result.Level)
	require.Empty(t, result.ImageBase64)
	require.Empty(t, result.ImageURL)
}

func TestMaterializeWholeCanvasRendersAtLowScale(t *testing.T) {
	renderer := &fakeRenderer{imageBytes: pngBytes(t, 640, 480)}
	m := NewMaterializer(renderer)
	node := &models.Node{
		ID: "0:1", Type: "CANVAS", Name: "Page 1",
		AbsoluteBoundingBox: &models.BoundingBox{Width: 1200, Height: 900},
	}

	m.Materialize(context.Background(), "file-key", node, pinMeta(10, 10))
	require.Equal(t, []float64{0.5}, renderer.scalesSeen)
}
