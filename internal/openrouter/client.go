package openrouter

import (
	"net/http"
	"time"
)

// DefaultAPIURL is the OpenRouter chat completions endpoint
const DefaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// Client is an extraction provider backed by the OpenRouter API
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	modelID    string
	referer    string
}

// Config holds configuration for the OpenRouter client
type Config struct {
	APIKey  string
	APIURL  string
	ModelID string
	Timeout time.Duration
	Referer string
}

// DefaultConfig returns a default configuration for the OpenRouter client
func DefaultConfig() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		ModelID: "google/gemini-2.5-flash",
		Timeout: 60 * time.Second,
		Referer: "https://github.com/ridwanfathin/labellens-service",
	}
}

// NewClient creates a new OpenRouter client
func NewClient(config *Config) *Client {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.APIURL == "" {
		config.APIURL = defaults.APIURL
	}
	if config.ModelID == "" {
		config.ModelID = defaults.ModelID
	}
	if config.Referer == "" {
		config.Referer = defaults.Referer
	}

	return &Client{
		apiKey:  config.APIKey,
		apiURL:  config.APIURL,
		modelID: config.ModelID,
		referer: config.Referer,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}
