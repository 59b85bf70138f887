package openrouter

import (
	"encoding/json"
	"fmt"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
)

// parseResponse pulls the model's message out of a chat completion and
// validates it against the extraction schema
func (c *Client) parseResponse(respBody []byte) (domain.Extracted, error) {
	type Choice struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	type Response struct {
		Choices []Choice `json:"choices"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	var response Response
	if err := json.Unmarshal(respBody, &response); err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "parse_response_json",
			Err: fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	// OpenRouter reports some upstream failures with a 200 and an error body
	if response.Error != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "check_api_response",
			Err: fmt.Errorf("upstream error: %s", response.Error.Message),
		}
	}

	if len(response.Choices) == 0 {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "check_response_choices",
			Err: fmt.Errorf("no choices in response"),
		}
	}

	return extraction.ParseFields(response.Choices[0].Message.Content)
}
