package twitter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Credentials holds the posting account's OAuth 1.0a user-context keys,
// stored as a single JSON secret blob.
type Credentials struct {
	APIKey            string `json:"API_KEY"`
	APISecret         string `json:"API_SECRET"`
	AccessToken       string `json:"ACCESS_TOKEN"`
	AccessTokenSecret string `json:"ACCESS_TOKEN_SECRET"`
	BearerToken       string `json:"BEARER_TOKEN"`
}

// ParseCredentials decodes the secret blob, failing loudly on any missing
// required key rather than discovering it at posting time
func ParseCredentials(secret string) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(secret), &creds); err != nil {
		return Credentials{}, fmt.Errorf("invalid credentials JSON: %w", err)
	}

	var missing []string
	if creds.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if creds.APISecret == "" {
		missing = append(missing, "API_SECRET")
	}
	if creds.AccessToken == "" {
		missing = append(missing, "ACCESS_TOKEN")
	}
	if creds.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return creds, nil
}
