package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/disintegration/imaging"
)

// Result holds an attachment image and its chat preview
type Result struct {
	Original    []byte
	Thumbnail   []byte
	ContentType string
	Width       int
	Height      int
}

// Config for image processing
type Config struct {
	MaxWidth    int // bounds kept for the stored original
	MaxHeight   int
	ThumbWidth  int // preview box, aspect ratio preserved
	ThumbHeight int
	Quality     int // JPEG quality 1-100
}

// DefaultConfig returns the sizes used for chat attachments
func DefaultConfig() Config {
	return Config{
		MaxWidth:    2048,
		MaxHeight:   2048,
		ThumbWidth:  320,
		ThumbHeight: 320,
		Quality:     85,
	}
}

// Processor downsizes images and renders thumbnails
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

// Process decodes data, shrinks it to the configured bounds and renders a
// thumbnail that fits inside the preview box.
func (p *Processor) Process(data []byte) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	resized := img
	if bounds.Dx() > p.config.MaxWidth || bounds.Dy() > p.config.MaxHeight {
		resized = imaging.Fit(img, p.config.MaxWidth, p.config.MaxHeight, imaging.Lanczos)
	}

	original, contentType, err := p.encode(resized, format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode original: %w", err)
	}

	thumb := imaging.Fit(img, p.config.ThumbWidth, p.config.ThumbHeight, imaging.Lanczos)
	thumbnail, _, err := p.encode(thumb, format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &Result{
		Original:    original,
		Thumbnail:   thumbnail,
		ContentType: contentType,
		Width:       resized.Bounds().Dx(),
		Height:      resized.Bounds().Dy(),
	}, nil
}

// encode writes PNG for PNG sources and JPEG for everything else
func (p *Processor) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}
