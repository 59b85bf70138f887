package extraction

import (
	"context"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/imageutil"
)

type downscaler struct {
	next   Extractor
	config *imageutil.ResizeConfig
}

// WithDownscale shrinks large images before handing them to next. Formats
// the decoder cannot read are passed through untouched. A maxDimension of
// zero or less disables it.
func WithDownscale(next Extractor, maxDimension int) Extractor {
	if maxDimension <= 0 {
		return next
	}
	return &downscaler{
		next: next,
		config: &imageutil.ResizeConfig{
			MaxDimension: maxDimension,
			Quality:      85,
			OutputFormat: "jpeg",
		},
	}
}

func (d *downscaler) Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error) {
	if len(image) > 0 && mimeType != imageutil.MIMEHEIC && mimeType != imageutil.MIMEHEIF {
		if resized, resizedType, err := imageutil.Downscale(image, d.config); err == nil {
			image, mimeType = resized, resizedType
		}
	}
	return d.next.Extract(ctx, image, mimeType)
}
