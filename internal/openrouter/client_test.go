package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

const labelJSON = `{"Product Name":"Rusk","Batch No":"R77","Manufacturing Date":"10.03.24","Expiry Date":"10.09.24","MRP":"40","Weight":"200g"}`

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestClient_Extract(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		w.Write([]byte(completion(labelJSON)))
	}))
	defer server.Close()

	client := NewClient(&Config{APIKey: "test-key", APIURL: server.URL, ModelID: "m"})
	got, err := client.Extract(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Rusk", got.ProductName)
	assert.Equal(t, "200g", got.Weight)

	assert.Equal(t, "m", received.Model)
	require.Len(t, received.Messages, 2)
	parts := received.Messages[1].Content
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
	assert.Equal(t, "json_object", received.ResponseFormat["type"])
}

func TestClient_ExtractFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		op     string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, "check_api_response"},
		{"upstream error in 200", http.StatusOK, `{"error":{"message":"rate limited"}}`, "check_api_response"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "check_response_choices"},
		{"not json", http.StatusOK, `<html>`, "parse_response_json"},
		{"bad fields", http.StatusOK, completion(`{"Product Name":"x"}`), "validate_response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(&Config{APIKey: "k", APIURL: server.URL})
			_, err := client.Extract(context.Background(), []byte("png"), "image/png")

			var ee *domain.ExtractionError
			require.True(t, errors.As(err, &ee), "got %v", err)
			assert.Equal(t, tt.op, ee.Op)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "single attempt")
		})
	}
}

func TestClient_MissingKey(t *testing.T) {
	client := NewClient(&Config{APIURL: "http://127.0.0.1:1"})
	_, err := client.Extract(context.Background(), []byte("png"), "image/png")

	var ee *domain.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "validate_configuration", ee.Op)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, DefaultAPIURL, c.apiURL)
	assert.NotEmpty(t, c.modelID)
}
