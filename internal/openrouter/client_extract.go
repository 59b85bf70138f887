package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
)

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
}

// Extract sends one label image to the configured model
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error) {
	if c.apiKey == "" {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "validate_configuration",
			Err: fmt.Errorf("OpenRouter API key is not configured. Please set OPENROUTER_API_KEY environment variable"),
		}
	}

	if err := extraction.ValidateInput(image, mimeType); err != nil {
		return domain.Extracted{}, err
	}

	// The image travels inline as a data URL
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	payload := chatRequest{
		Model: c.modelID,
		Messages: []message{
			{
				Role:    "system",
				Content: []contentPart{{Type: "text", Text: extraction.Prompt}},
			},
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: "Extract the product details from this label image."},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	requestData, err := json.Marshal(payload)
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "marshal_request",
			Err: fmt.Errorf("failed to marshal request payload: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "create_extract_request",
			Err: fmt.Errorf("failed to create request: %w", err),
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "send_extract_request",
			Err: fmt.Errorf("failed to send request: %w", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "read_response",
			Err: fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "check_api_response",
			Err: fmt.Errorf("API error: %s - %s", resp.Status, truncate(string(respBody), 512)),
		}
	}

	return c.parseResponse(respBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
