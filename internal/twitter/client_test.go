package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCredentials() Credentials {
	return Credentials{
		APIKey:            "key",
		APISecret:         "secret",
		AccessToken:       "token",
		AccessTokenSecret: "token-secret",
	}
}

func TestUploadMedia(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "january_15_0_Hat.jpg")
	if err := os.WriteFile(mediaPath, []byte("fake_image"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/media/upload.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Error("missing OAuth authorization header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		f, _, err := r.FormFile("media")
		if err != nil {
			t.Errorf("missing media part: %v", err)
		} else {
			f.Close()
		}
		fmt.Fprint(w, `{"media_id_string":"12345"}`)
	}))
	defer server.Close()

	client := NewClient(testCredentials(), server.URL, server.URL)
	mediaID, err := client.UploadMedia(context.Background(), mediaPath)
	if err != nil {
		t.Fatalf("UploadMedia failed: %v", err)
	}
	if mediaID != "12345" {
		t.Errorf("mediaID = %q, want 12345", mediaID)
	}
}

func TestCreatePost(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Error("missing OAuth authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"1"}}`)
	}))
	defer server.Close()

	client := NewClient(testCredentials(), server.URL, server.URL)
	if err := client.CreatePost(context.Background(), "National Hat Day!", []string{"12345"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if got["text"] != "National Hat Day!" {
		t.Errorf("post text = %v", got["text"])
	}
	media, ok := got["media"].(map[string]interface{})
	if !ok {
		t.Fatalf("post media = %v", got["media"])
	}
	ids, ok := media["media_ids"].([]interface{})
	if !ok || len(ids) != 1 || ids[0] != "12345" {
		t.Errorf("media_ids = %v", media["media_ids"])
	}
}

func TestCreatePostProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"duplicate content"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testCredentials(), server.URL, server.URL)
	if err := client.CreatePost(context.Background(), "text", nil); err == nil {
		t.Error("expected error for provider failure")
	}
}

func TestMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user.fields"); got != "public_metrics" {
			t.Errorf("user.fields = %q", got)
		}
		fmt.Fprint(w, `{"data":{"id":"99","name":"Spooky Days","username":"spookydays","public_metrics":{"followers_count":10,"tweet_count":365}}}`)
	}))
	defer server.Close()

	client := NewClient(testCredentials(), server.URL, server.URL)
	account, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if account.Username != "spookydays" || account.PublicMetrics.TweetCount != 365 {
		t.Errorf("unexpected account: %+v", account)
	}
}

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials(`{"API_KEY":"k","API_SECRET":"s","ACCESS_TOKEN":"t","ACCESS_TOKEN_SECRET":"ts","BEARER_TOKEN":"b"}`)
	if err != nil {
		t.Fatalf("ParseCredentials failed: %v", err)
	}
	if creds.APIKey != "k" || creds.AccessTokenSecret != "ts" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestParseCredentialsMissingKeys(t *testing.T) {
	_, err := ParseCredentials(`{"API_KEY":"k"}`)
	if err == nil {
		t.Fatal("expected error for missing keys")
	}
	for _, want := range []string{"API_SECRET", "ACCESS_TOKEN", "ACCESS_TOKEN_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %s: %v", want, err)
		}
	}
}

func TestParseCredentialsInvalidJSON(t *testing.T) {
	if _, err := ParseCredentials("not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
