// Package secrets resolves credentials for the external services. Values are
// looked up by secret ID in the environment; values carrying the "enc:"
// prefix are AES-256-GCM encrypted blobs decrypted with the process key.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when no value exists for a secret ID
var ErrNotFound = errors.New("secret not found")

// encryptedPrefix marks values that need decryption before use
const encryptedPrefix = "enc:"

// Source resolves secret values by ID
type Source interface {
	Get(ctx context.Context, id string) (string, error)
}

// EnvSource reads secrets from environment variables. An optional Cipher
// decrypts values stored under the enc: prefix.
type EnvSource struct {
	cipher *Cipher
}

// NewEnvSource creates an environment-backed secret source. base64Key may be
// empty, in which case encrypted values are rejected.
func NewEnvSource(base64Key string) (*EnvSource, error) {
	if base64Key == "" {
		return &EnvSource{}, nil
	}
	cipher, err := NewCipher(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets cipher: %w", err)
	}
	return &EnvSource{cipher: cipher}, nil
}

// Get resolves a secret value by ID
func (s *EnvSource) Get(_ context.Context, id string) (string, error) {
	value := os.Getenv(id)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	if s.cipher == nil {
		return "", fmt.Errorf("secret %s is encrypted but no SECRETS_KEY is configured", id)
	}
	plaintext, err := s.cipher.Decrypt(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret %s: %w", id, err)
	}
	return plaintext, nil
}
