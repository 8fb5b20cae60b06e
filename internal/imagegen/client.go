// Package imagegen calls the external generative-image service. All provider
// failures (rate limit, content policy, timeout) collapse to one error kind;
// callers only decide pass/fail per item.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted image generation endpoint
const DefaultBaseURL = "https://api.openai.com"

// Options fixes the generation parameters for every request in a run
type Options struct {
	Model   string
	Size    string
	Style   string
	Quality string
}

// Client generates images over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	opts       Options
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates an image generation client. Empty baseURL falls back to
// the hosted endpoint; stubMode short-circuits the provider for local runs.
func NewClient(baseURL, apiKey string, opts Options, stubMode bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		opts:       opts,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		stubMode:   stubMode,
	}
}

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Style          string `json:"style"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// Generate produces one image for the prompt and returns its bytes
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.stubMode {
		// Minimal JPEG marker pair, enough to exercise the rest of the
		// pipeline without a provider account.
		return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
	}

	body, err := json.Marshal(generateRequest{
		Model:          c.opts.Model,
		Prompt:         prompt,
		N:              1,
		Size:           c.opts.Size,
		Style:          c.opts.Style,
		Quality:        c.opts.Quality,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image generation failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no data")
	}

	image, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return image, nil
}
