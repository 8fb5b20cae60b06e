// Package twitter posts images to the configured account: media bytes go
// through the v1.1 upload endpoint, the post itself through the v2 tweets
// endpoint. Provider failures are not discriminated into finer causes.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Default API hosts
const (
	DefaultUploadBaseURL = "https://upload.twitter.com"
	DefaultAPIBaseURL    = "https://api.twitter.com"
)

// Client posts to the social account
type Client struct {
	creds         Credentials
	uploadBaseURL string
	apiBaseURL    string
	signer        *signer
	httpClient    *http.Client
}

// NewClient creates a posting client. Empty base URLs fall back to the hosted
// endpoints; tests point them at local servers.
func NewClient(creds Credentials, uploadBaseURL, apiBaseURL string) *Client {
	if uploadBaseURL == "" {
		uploadBaseURL = DefaultUploadBaseURL
	}
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	return &Client{
		creds:         creds,
		uploadBaseURL: uploadBaseURL,
		apiBaseURL:    apiBaseURL,
		signer:        newSigner(creds.APIKey, creds.APISecret, creds.AccessToken, creds.AccessTokenSecret),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

type mediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// UploadMedia uploads the file at path as post media and returns its media ID
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	uploadURL := c.uploadBaseURL + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	// Multipart bodies are excluded from the OAuth signature base
	auth, err := c.signer.authorizationHeader(http.MethodPost, uploadURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("media upload failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var decoded mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if decoded.MediaIDString == "" {
		return "", fmt.Errorf("media upload returned no media id")
	}
	return decoded.MediaIDString, nil
}

type createPostRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

// CreatePost publishes a post with the given text referencing uploaded media
func (c *Client) CreatePost(ctx context.Context, text string, mediaIDs []string) error {
	payload := createPostRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: mediaIDs}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal post request: %w", err)
	}

	postURL := c.apiBaseURL + "/2/tweets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth, err := c.signer.authorizationHeader(http.MethodPost, postURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post creation failed: status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// Account is the posting account's public profile
type Account struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

type meResponse struct {
	Data Account `json:"data"`
}

// Me fetches the posting account's profile for the gallery API
func (c *Client) Me(ctx context.Context) (*Account, error) {
	meURL := c.apiBaseURL + "/2/users/me?user.fields=public_metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	auth, err := c.signer.authorizationHeader(http.MethodGet, meURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("profile fetch failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var decoded meResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return &decoded.Data, nil
}
