package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension is the default maximum dimension for resizing
const DefaultMaxDimension = 1024

// ResizeConfig holds configuration for image resizing
type ResizeConfig struct {
	MaxDimension int    // Maximum width or height (default 1024)
	Quality      int    // JPEG quality 1-100 (default 85)
	OutputFormat string // "png" or "jpeg"; empty keeps the source format
}

// DefaultConfig returns default resize configuration
func DefaultConfig() *ResizeConfig {
	return &ResizeConfig{
		MaxDimension: DefaultMaxDimension,
		Quality:      85,
		OutputFormat: "jpeg",
	}
}

// Downscale shrinks an image so its longer side is at most MaxDimension,
// keeping the aspect ratio. Images already within bounds are returned
// unchanged with their sniffed MIME type. The second return value is the
// MIME type of the returned bytes.
func Downscale(imageData []byte, config *ResizeConfig) ([]byte, string, error) {
	if config == nil {
		config = DefaultConfig()
	}

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if config.MaxDimension <= 0 || (width <= config.MaxDimension && height <= config.MaxDimension) {
		return imageData, DetectMIME(imageData), nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = config.MaxDimension
		newHeight = int(float64(height) * float64(config.MaxDimension) / float64(width))
	} else {
		newHeight = config.MaxDimension
		newWidth = int(float64(width) * float64(config.MaxDimension) / float64(height))
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))

	// CatmullRom is close to Lanczos and keeps small label text legible
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = format
	}

	var buf bytes.Buffer
	var mimeType string
	switch outputFormat {
	case "png":
		err = png.Encode(&buf, dst)
		mimeType = MIMEPNG
	default:
		quality := config.Quality
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality})
		mimeType = MIMEJPEG
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}
