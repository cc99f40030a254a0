package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quintos/internal/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testDocument builds an image with enough tonal range to skip the
// contrast stretch.
func testDocument(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestNormalizeRejectsUndecodableInput(t *testing.T) {
	_, err := Normalize([]byte("not an image at all"))
	require.Error(t, err)

	var decErr *domain.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "Non riesco a leggere l'immagine. Per favore invii una foto leggibile del documento.", decErr.UserMessage)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := encodePNG(t, testDocument(800, 600))

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first.JPEGBytes, second.JPEGBytes)
	assert.Equal(t, first.Base64, second.Base64)
}

func TestNormalizeKeepsSmallImagesUnscaled(t *testing.T) {
	raw := encodePNG(t, testDocument(800, 600))

	out, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, 800, out.OriginalWidth)
	assert.Equal(t, 600, out.OriginalHeight)
	assert.Equal(t, 800, out.FinalWidth)
	assert.Equal(t, 600, out.FinalHeight)
}

func TestNormalizeDownscalesLongEdge(t *testing.T) {
	raw := encodePNG(t, testDocument(3000, 1500))

	out, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, 3000, out.OriginalWidth)
	assert.Equal(t, 1500, out.OriginalHeight)
	assert.Equal(t, 1440, out.FinalWidth)
	assert.Equal(t, 720, out.FinalHeight)
}

func TestNormalizeDownscalesPortrait(t *testing.T) {
	raw := encodePNG(t, testDocument(1500, 3000))

	out, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, 720, out.FinalWidth)
	assert.Equal(t, 1440, out.FinalHeight)
}

func TestNormalizeOutputIsJPEG(t *testing.T) {
	raw := encodePNG(t, testDocument(100, 50))

	out, err := Normalize(raw)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out.JPEGBytes))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	// fully transparent image should flatten to white
	raw := encodePNG(t, img)

	out, err := Normalize(raw)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out.JPEGBytes))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(5, 5).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestApplyOrientationRotate90CW(t *testing.T) {
	// 2x1 image: left red, right green. Orientation 6 rotates 90 CW,
	// giving 1x2 with red on top.
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{G: 255, A: 255})

	out := applyOrientation(src, 6)
	require.Equal(t, 1, out.Bounds().Dx())
	require.Equal(t, 2, out.Bounds().Dy())

	r, _, _, _ := out.At(0, 0).RGBA()
	_, g, _, _ := out.At(0, 1).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Equal(t, uint32(255), g>>8)
}

func TestApplyOrientationRotate90CCW(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{G: 255, A: 255})

	out := applyOrientation(src, 8)
	require.Equal(t, 1, out.Bounds().Dx())
	require.Equal(t, 2, out.Bounds().Dy())

	_, g, _, _ := out.At(0, 0).RGBA()
	r, _, _, _ := out.At(0, 1).RGBA()
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(255), r>>8)
}

func TestApplyOrientationUprightIsIdentity(t *testing.T) {
	src := testDocument(4, 4)
	assert.Equal(t, src, applyOrientation(src, 1))
}

func TestIsLowContrast(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			flat.Set(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	assert.True(t, isLowContrast(flat))
	assert.False(t, isLowContrast(testDocument(10, 10)))
}

func TestStretchContrastExpandsRange(t *testing.T) {
	// narrow band 120..130
	img := image.NewNRGBA(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		v := uint8(120 + x)
		img.Set(x, 0, color.NRGBA{R: v, G: v, B: v, A: 255})
	}

	out := stretchContrast(img)
	lo, hi := lumaExtrema(out)
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)
}

func TestStretchContrastSkipsFlatImage(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			flat.Set(x, y, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
		}
	}
	assert.Equal(t, image.Image(flat), stretchContrast(flat))
}
