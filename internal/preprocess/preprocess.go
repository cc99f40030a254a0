// Package preprocess normalizes raw document photos into the canonical
// form the vision model consumes: upright orientation, bounded size,
// repaired contrast, RGB JPEG, base64. The transform is synchronous and
// deterministic; it never talks to the inference backend.
package preprocess

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"log"

	_ "image/gif"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"quintos/internal/domain"
)

const (
	// MaxLongSide caps the longer image edge; larger inputs are downscaled
	// preserving aspect ratio.
	MaxLongSide = 1440

	// JPEGQuality is the fixed re-encode quality.
	JPEGQuality = 85

	// lowContrastCutoff: luma spread below this fraction of the full range
	// triggers a contrast stretch.
	lowContrastCutoff = 0.05
)

const userMsgUnreadable = "Non riesco a leggere l'immagine. Per favore invii una foto leggibile del documento."

// NormalizedImage is the immutable result of preprocessing, consumed
// read-only by the classifier and the extractors.
type NormalizedImage struct {
	JPEGBytes []byte
	Base64    string

	OriginalWidth  int
	OriginalHeight int
	FinalWidth     int
	FinalHeight    int
}

// Normalize decodes raw image bytes and produces a NormalizedImage.
// Returns *domain.DecodeError when the bytes are not a decodable image.
// All other steps are best-effort or infallible; given the same input the
// output is byte-identical.
func Normalize(raw []byte) (*NormalizedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.DecodeError{Err: err, UserMessage: userMsgUnreadable}
	}

	bounds := img.Bounds()
	originalWidth, originalHeight := bounds.Dx(), bounds.Dy()

	img = applyOrientation(img, readOrientation(raw))

	// Downscale if the longer edge exceeds the cap (preserve aspect ratio)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	longSide := max(w, h)
	if longSide > MaxLongSide {
		ratio := float64(MaxLongSide) / float64(longSide)
		targetW := int(float64(w) * ratio)
		targetH := int(float64(h) * ratio)
		dst := image.NewNRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
	}

	if isLowContrast(img) {
		img = stretchContrast(img)
	}

	rgb := flattenToRGB(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		// jpeg.Encode on an NRGBA image only fails on writer errors, which a
		// bytes.Buffer never produces; keep the guard anyway.
		return nil, &domain.DecodeError{Err: err, UserMessage: userMsgUnreadable}
	}
	jpegBytes := buf.Bytes()

	return &NormalizedImage{
		JPEGBytes:      jpegBytes,
		Base64:         base64.StdEncoding.EncodeToString(jpegBytes),
		OriginalWidth:  originalWidth,
		OriginalHeight: originalHeight,
		FinalWidth:     rgb.Bounds().Dx(),
		FinalHeight:    rgb.Bounds().Dy(),
	}, nil
}

// readOrientation extracts the EXIF orientation tag (1–8), defaulting to 1
// (upright) when the image has no EXIF data or the tag is malformed.
func readOrientation(raw []byte) int {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation remaps pixels so visual "up" matches EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	if orientation <= 1 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.NRGBA
	switch orientation {
	case 2, 3, 4:
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	default: // 5–8 swap axes
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch orientation {
			case 2: // mirror horizontal
				dst.Set(w-1-x, y, c)
			case 3: // rotate 180
				dst.Set(w-1-x, h-1-y, c)
			case 4: // mirror vertical
				dst.Set(x, h-1-y, c)
			case 5: // transpose
				dst.Set(y, x, c)
			case 6: // rotate 90 CW
				dst.Set(h-1-y, x, c)
			case 7: // transverse
				dst.Set(h-1-y, w-1-x, c)
			case 8: // rotate 90 CCW
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// isLowContrast reports whether the luma spread is below the cutoff.
func isLowContrast(img image.Image) bool {
	lo, hi := lumaExtrema(img)
	return float64(hi-lo)/255.0 < lowContrastCutoff
}

func lumaExtrema(img image.Image) (lo, hi uint8) {
	lo, hi = 255, 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 8-bit channels
			l := uint8((299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000)
			if l < lo {
				lo = l
			}
			if l > hi {
				hi = l
			}
		}
	}
	return lo, hi
}

// stretchContrast linearly remaps each channel to the full 8-bit range.
// Best-effort: a degenerate image (single-valued channel) is returned
// unchanged rather than failing the pipeline.
func stretchContrast(img image.Image) image.Image {
	b := img.Bounds()
	var lo, hi [3]uint8
	for i := range lo {
		lo[i] = 255
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			for i, v := range [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)} {
				if v < lo[i] {
					lo[i] = v
				}
				if v > hi[i] {
					hi[i] = v
				}
			}
		}
	}

	for i := range lo {
		if hi[i] <= lo[i] {
			log.Printf("preprocess: contrast stretch skipped (flat channel)")
			return img
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			dst.Set(x-b.Min.X, y-b.Min.Y, color.NRGBA{
				R: remap(uint8(r>>8), lo[0], hi[0]),
				G: remap(uint8(g>>8), lo[1], hi[1]),
				B: remap(uint8(bl>>8), lo[2], hi[2]),
				A: uint8(a >> 8),
			})
		}
	}
	return dst
}

func remap(v, lo, hi uint8) uint8 {
	return uint8(int(v-lo) * 255 / int(hi-lo))
}

// flattenToRGB composites the image over a white background, dropping
// alpha and expanding grayscale to three channels.
func flattenToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
