// Package imageproc normalizes uploaded listing images and extracts text
// from them. Uploads arrive in whatever format the platform allowed;
// persisted output is always JPEG at a fixed quality so downstream
// consumers see one raster format.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ProcessedImage describes a normalized image persisted to disk.
type ProcessedImage struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Normalizer decodes, bounds and re-encodes listing images.
type Normalizer struct {
	maxSide int
	quality int
}

// NewNormalizer creates a normalizer. maxSide bounds the longer image
// dimension (images are never upscaled); quality is the JPEG re-encode
// quality.
func NewNormalizer(maxSide, quality int) *Normalizer {
	if maxSide <= 0 {
		maxSide = 1400
	}
	if quality < 1 || quality > 100 {
		quality = 92
	}
	return &Normalizer{maxSide: maxSide, quality: quality}
}

// Normalize decodes raw image bytes into RGBA and downscales
// proportionally when the longer side exceeds the configured bound.
func (n *Normalizer) Normalize(data []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longer := w
	if h > longer {
		longer = h
	}
	if longer > n.maxSide {
		scale := float64(n.maxSide) / float64(longer)
		dw := int(float64(w) * scale)
		dh := int(float64(h) * scale)
		if dw < 1 {
			dw = 1
		}
		if dh < 1 {
			dh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		return dst, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst, nil
}

// Save re-encodes the normalized image as JPEG at the configured quality
// and writes it to dest, creating parent directories as needed.
func (n *Normalizer) Save(img *image.RGBA, dest string) (ProcessedImage, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ProcessedImage{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: n.quality}); err != nil {
		return ProcessedImage{}, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	b := img.Bounds()
	return ProcessedImage{Path: dest, Width: b.Dx(), Height: b.Dy()}, nil
}
