package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

// ImageSettings controls page re-encoding for e-reader export.
type ImageSettings struct {
	MaxWidth  int
	MaxHeight int
	Grayscale bool
	Quality   int
}

// EReaderSettings fits the common 300ppi 7.8" e-reader panel. Webtoon
// pages are tall strips, so the height bound does most of the work.
func EReaderSettings() ImageSettings {
	return ImageSettings{
		MaxWidth:  1404,
		MaxHeight: 1872,
		Grayscale: true,
		Quality:   85,
	}
}

// ImageProcessor downscales and re-encodes pages for embedding.
type ImageProcessor struct {
	settings ImageSettings
}

func NewImageProcessor(settings ImageSettings) *ImageProcessor {
	if settings.Quality < 1 || settings.Quality > 100 {
		settings.Quality = 85
	}
	return &ImageProcessor{settings: settings}
}

// Process decodes a page, scales it to fit the configured bounds, and
// encodes it as JPEG.
func (p *ImageProcessor) Process(input io.Reader) ([]byte, error) {
	img, _, err := image.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := p.fit(bounds.Dx(), bounds.Dy())

	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		img = p.resize(img, newWidth, newHeight)
	}
	if p.settings.Grayscale {
		img = toGrayscale(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.settings.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fit returns the largest dimensions within the bounds that keep the
// original aspect ratio.
func (p *ImageProcessor) fit(width, height int) (int, int) {
	if width <= p.settings.MaxWidth && height <= p.settings.MaxHeight {
		return width, height
	}

	widthScale := float64(p.settings.MaxWidth) / float64(width)
	heightScale := float64(p.settings.MaxHeight) / float64(height)
	scale := widthScale
	if heightScale < widthScale {
		scale = heightScale
	}

	return int(float64(width) * scale), int(float64(height) * scale)
}

func (p *ImageProcessor) resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	// CatmullRom for high-quality downscaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	return dst
}

func toGrayscale(img image.Image) image.Image {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}
