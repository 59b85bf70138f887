package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/imageutil"
)

// Extractor reads structured product fields off a label image. One call is
// one attempt; implementations never retry and never touch a store.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error)

func (f ExtractorFunc) Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error) {
	return f(ctx, image, mimeType)
}

// Prompt is the instruction sent with every image
const Prompt = `You are an AI that extracts structured product details from images of food packets, labels, or consumer goods.
Look at the provided image and carefully identify the following fields:

- Product Name
- Batch No
- Manufacturing Date
- Expiry Date / Use By Date
- MRP (Maximum Retail Price)
- Net Weight (in grams)

Rules:
- If "Product Name" is not found on the label, the value for "Product Name" must be an empty string ("").
- For all other fields, if the information is missing or unclear, output the string "Not found".
- Dates should always be in DD.MM.YY format.
- MRP should be a whole number only, without any currency symbols or decimals (e.g., 15).
- Weight should be a number followed by "g".

Output must be in strict JSON format with exactly these keys: "Product Name", "Batch No", "Manufacturing Date", "Expiry Date", "MRP", "Weight".`

// SchemaFields are the keys every response must carry, in schema order
var SchemaFields = []domain.Field{
	domain.FieldProductName,
	domain.FieldBatchNo,
	domain.FieldManufacturingDate,
	domain.FieldExpiryDate,
	domain.FieldMRP,
	domain.FieldWeight,
}

var (
	datePattern   = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{2}$`)
	mrpPattern    = regexp.MustCompile(`^\d+$`)
	weightPattern = regexp.MustCompile(`^\d+g$`)
	fencePattern  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// ValidateInput checks the request side of the contract
func ValidateInput(image []byte, mimeType string) error {
	if len(image) == 0 {
		return &domain.ExtractionError{Op: "validate_input", Err: errors.New("image is empty")}
	}
	if !imageutil.Accepted(mimeType) {
		return &domain.ExtractionError{Op: "validate_input", Err: fmt.Errorf("unsupported mime type %q", mimeType)}
	}
	return nil
}

// ParseFields decodes and validates a raw model response. Any deviation from
// the schema is an *domain.ExtractionError.
func ParseFields(raw string) (domain.Extracted, error) {
	content := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return domain.Extracted{}, &domain.ExtractionError{Op: "parse_response", Err: fmt.Errorf("response is not a JSON object: %w", err)}
	}

	if len(obj) != len(SchemaFields) {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "validate_response",
			Err: fmt.Errorf("expected %d fields, got %d", len(SchemaFields), len(obj)),
		}
	}

	values := make(map[domain.Field]string, len(SchemaFields))
	for _, f := range SchemaFields {
		rawValue, ok := obj[string(f)]
		if !ok {
			return domain.Extracted{}, &domain.ExtractionError{Op: "validate_response", Err: fmt.Errorf("missing field %q", f)}
		}
		var v string
		if err := json.Unmarshal(rawValue, &v); err != nil {
			return domain.Extracted{}, &domain.ExtractionError{Op: "validate_response", Err: fmt.Errorf("field %q is not a string", f)}
		}
		values[f] = strings.TrimSpace(v)
	}

	checks := []struct {
		field   domain.Field
		pattern *regexp.Regexp
	}{
		{domain.FieldManufacturingDate, datePattern},
		{domain.FieldExpiryDate, datePattern},
		{domain.FieldMRP, mrpPattern},
		{domain.FieldWeight, weightPattern},
	}
	for _, c := range checks {
		v := values[c.field]
		if v != domain.NotFound && !c.pattern.MatchString(v) {
			return domain.Extracted{}, &domain.ExtractionError{Op: "validate_response", Err: fmt.Errorf("field %q has malformed value %q", c.field, v)}
		}
	}
	if values[domain.FieldBatchNo] == "" {
		return domain.Extracted{}, &domain.ExtractionError{Op: "validate_response", Err: fmt.Errorf("field %q is empty", domain.FieldBatchNo)}
	}

	return domain.Extracted{
		ProductName:       values[domain.FieldProductName],
		BatchNo:           values[domain.FieldBatchNo],
		ManufacturingDate: values[domain.FieldManufacturingDate],
		ExpiryDate:        values[domain.FieldExpiryDate],
		MRP:               values[domain.FieldMRP],
		Weight:            values[domain.FieldWeight],
	}, nil
}
