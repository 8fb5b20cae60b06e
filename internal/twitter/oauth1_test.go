package twitter

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func fixedSigner() *signer {
	s := newSigner("consumer-key", "consumer-secret", "access-token", "token-secret")
	s.nonce = func() (string, error) { return "fixednonce", nil }
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestSignatureBase(t *testing.T) {
	u, err := url.Parse("https://api.twitter.com/2/users/me?user.fields=public_metrics")
	if err != nil {
		t.Fatal(err)
	}
	oauthParams := map[string]string{
		"oauth_consumer_key":     "ck",
		"oauth_nonce":            "n",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "100",
		"oauth_token":            "tk",
		"oauth_version":          "1.0",
	}

	got := signatureBase("get", u, nil, oauthParams)
	want := "GET&https%3A%2F%2Fapi.twitter.com%2F2%2Fusers%2Fme&" +
		"oauth_consumer_key%3Dck%26oauth_nonce%3Dn%26oauth_signature_method%3DHMAC-SHA1%26" +
		"oauth_timestamp%3D100%26oauth_token%3Dtk%26oauth_version%3D1.0%26" +
		"user.fields%3Dpublic_metrics"
	if got != want {
		t.Errorf("signatureBase:\n got %s\nwant %s", got, want)
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abcXYZ019-._~", "abcXYZ019-._~"},
		{"hello world", "hello%20world"},
		{"a=b&c", "a%3Db%26c"},
		{"100%", "100%25"},
		{"ladies + gentlemen", "ladies%20%2B%20gentlemen"},
	}
	for _, tt := range tests {
		if got := percentEncode(tt.input); got != tt.want {
			t.Errorf("percentEncode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAuthorizationHeaderShape(t *testing.T) {
	s := fixedSigner()
	header, err := s.authorizationHeader("POST", "https://api.twitter.com/2/tweets", nil)
	if err != nil {
		t.Fatalf("authorizationHeader failed: %v", err)
	}

	if !strings.HasPrefix(header, "OAuth ") {
		t.Fatalf("header missing OAuth prefix: %s", header)
	}
	for _, field := range []string{
		`oauth_consumer_key="consumer-key"`,
		`oauth_nonce="fixednonce"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_timestamp="1700000000"`,
		`oauth_token="access-token"`,
		`oauth_version="1.0"`,
		`oauth_signature="`,
	} {
		if !strings.Contains(header, field) {
			t.Errorf("header missing %s: %s", field, header)
		}
	}
}

func TestAuthorizationHeaderDeterministic(t *testing.T) {
	first, err := fixedSigner().authorizationHeader("POST", "https://api.twitter.com/2/tweets", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := fixedSigner().authorizationHeader("POST", "https://api.twitter.com/2/tweets", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same inputs produced different headers:\n%s\n%s", first, second)
	}
}
