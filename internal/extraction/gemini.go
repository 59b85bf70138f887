package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// DefaultGeminiModel is the vision model used when none is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey string
	Model  string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient extracts label fields with Google's Gemini API. The client is
// opened once and reused for every call.
type GeminiClient struct {
	client    *genai.Client
	generator contentGenerator
	modelName string
}

// NewGeminiClient opens a Gemini client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ExtractionError{Op: "validate_configuration", Err: errors.New("GEMINI_API_KEY is not set")}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, &domain.ExtractionError{Op: "create_client", Err: err}
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema()

	return &GeminiClient{
		client:    client,
		generator: model,
		modelName: cfg.Model,
	}, nil
}

func responseSchema() *genai.Schema {
	descriptions := map[domain.Field]string{
		domain.FieldProductName:       "The name of the product. Should be an empty string if not found.",
		domain.FieldBatchNo:           "The batch number of the product.",
		domain.FieldManufacturingDate: "The manufacturing date in DD.MM.YY format.",
		domain.FieldExpiryDate:        "The expiry or use by date in DD.MM.YY format.",
		domain.FieldMRP:               "Maximum Retail Price, as a whole number without currency symbols or decimals.",
		domain.FieldWeight:            "Net weight in grams (e.g., '100g').",
	}

	props := make(map[string]*genai.Schema, len(SchemaFields))
	required := make([]string, 0, len(SchemaFields))
	for _, f := range SchemaFields {
		props[string(f)] = &genai.Schema{Type: genai.TypeString, Description: descriptions[f]}
		required = append(required, string(f))
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}

// Extract sends one image to Gemini
func (c *GeminiClient) Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error) {
	if err := ValidateInput(image, mimeType); err != nil {
		return domain.Extracted{}, err
	}

	resp, err := c.generator.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: image},
		genai.Text(Prompt),
	)
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{Op: "generate_content", Err: err}
	}

	text, err := responseText(resp)
	if err != nil {
		return domain.Extracted{}, err
	}
	return ParseFields(text)
}

// Close releases the underlying client
func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &domain.ExtractionError{Op: "check_response_candidates", Err: errors.New("no candidates in response")}
	}

	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", &domain.ExtractionError{
			Op:  "check_response_candidates",
			Err: fmt.Errorf("empty candidate (finish reason %v)", cand.FinishReason),
		}
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &domain.ExtractionError{Op: "check_response_candidates", Err: errors.New("candidate has no text")}
	}
	return sb.String(), nil
}
