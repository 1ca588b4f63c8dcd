package extraction

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	defaultMinDimension = 1200
	defaultContrast     = 1.5
	midGray             = 128
	defaultThreshold    = 128
)

// ImageNormalizer prepares a photo or scan for recognition: upscale small
// sources, grayscale, contrast stretch, binarize and despeckle. The steps
// always run in that order and the output is deterministic for a given
// input.
type ImageNormalizer struct {
	// MinDimension is the floor for the smaller side; smaller images are
	// scaled up uniformly until it is reached.
	MinDimension int
	// Contrast is the linear stretch factor applied around mid-gray.
	Contrast float64
	// Threshold splits the stretched plane into black (<= Threshold) and
	// white (> Threshold).
	Threshold uint8
}

// NewImageNormalizer returns a normalizer with the standard settings.
func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{
		MinDimension: defaultMinDimension,
		Contrast:     defaultContrast,
		Threshold:    defaultThreshold,
	}
}

// NormalizeBytes decodes an encoded image (JPEG, PNG, GIF, BMP, TIFF or
// WebP), normalizes it and returns it PNG-encoded.
func (n *ImageNormalizer) NormalizeBytes(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ExtractionError{
			Code:    ErrInvalidDocument,
			Message: "could not decode image",
			Method:  MethodOCR,
			Cause:   err,
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, n.Normalize(img)); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize runs the full pipeline on img.
func (n *ImageNormalizer) Normalize(img image.Image) *image.Gray {
	return medianFilter3x3(n.binarize(n.upscale(img)))
}

func (n *ImageNormalizer) upscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || (w >= n.MinDimension && h >= n.MinDimension) {
		return img
	}
	scale := float64(n.MinDimension) / float64(min(w, h))
	return imaging.Resize(img, int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale)), imaging.Lanczos)
}

// binarize converts to luma, stretches contrast around mid-gray and applies
// the threshold in a single pass.
func (n *ImageNormalizer) binarize(img image.Image) *image.Gray {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, b := float64(row[x*4]), float64(row[x*4+1]), float64(row[x*4+2])
			luma := 0.299*r + 0.587*g + 0.114*b
			stretched := math.Max(0, math.Min(255, n.Contrast*(luma-midGray)+midGray))
			if stretched > float64(n.Threshold) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// medianFilter3x3 replaces each pixel with the median of its 3x3
// neighbourhood, reusing the nearest edge pixel outside the image. The input
// is binary, so the median is white exactly when at least five of the nine
// samples are white.
func medianFilter3x3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			white := 0
			for dy := -1; dy <= 1; dy++ {
				sy := clamp(y+dy, h-1)
				for dx := -1; dx <= 1; dx++ {
					sx := clamp(x+dx, w-1)
					if src.Pix[sy*src.Stride+sx] == 255 {
						white++
					}
				}
			}
			if white >= 5 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
