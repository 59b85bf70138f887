// Package mlxclient talks to a self-hosted MLX-VLM extraction server. It lets
// label extraction run on a machine on the local network when no cloud
// provider is reachable.
package mlxclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
)

// Client represents a client for the MLX-VLM service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the MLX client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type extractRequest struct {
	Image    string `json:"image_base64"`
	MIMEType string `json:"mime_type"`
	Prompt   string `json:"prompt"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// NewClient creates a new MLX-VLM client
func NewClient(config *Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 300 * time.Second // local models are slow on first load
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Extract sends one label image to the server's /extract endpoint. The
// server answers {"text": "<model output>"}; the text must satisfy the same
// schema as the cloud providers.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) (domain.Extracted, error) {
	if c.baseURL == "" {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "validate_configuration",
			Err: fmt.Errorf("MLX_BASE_URL is not set"),
		}
	}
	if err := extraction.ValidateInput(image, mimeType); err != nil {
		return domain.Extracted{}, err
	}

	jsonData, err := json.Marshal(extractRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MIMEType: mimeType,
		Prompt:   extraction.Prompt,
	})
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{Op: "marshal_request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(jsonData))
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{Op: "create_extract_request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

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
		return domain.Extracted{}, &domain.ExtractionError{Op: "read_response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "check_api_response",
			Err: fmt.Errorf("MLX service error (status %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var out extractResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.Extracted{}, &domain.ExtractionError{
			Op:  "parse_response",
			Err: fmt.Errorf("failed to parse response: %w", err),
		}
	}
	return extraction.ParseFields(out.Text)
}

// HealthCheck checks if the MLX service is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
