package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"popauth/pkg/logging"
	"popauth/pkg/oauth"

	"gopkg.in/yaml.v3"
)

const tokensDir = "tokens"

// ErrTokenNotFound is returned by TokenStore.Load for a profile without a
// cached token.
var ErrTokenNotFound = errors.New("no cached token")

// StoredToken is the cached result of the last successful authorization
// or refresh of a profile.
type StoredToken struct {
	oauth.TokenResult `yaml:",inline"`

	Scopes   []string  `yaml:"scopes,omitempty"`
	IssuedAt time.Time `yaml:"issuedAt"`
}

// Expired reports whether the access token is past its expiration date.
func (t *StoredToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// TokenStore keeps one token file per profile under <config>/tokens.
// Files are readable by the owner only. Token values are never logged.
type TokenStore struct {
	mu         sync.RWMutex
	configPath string
}

// NewTokenStore creates a store rooted at configPath.
func NewTokenStore(configPath string) *TokenStore {
	return &TokenStore{configPath: configPath}
}

// Save stores token for profile, replacing any previous token.
func (ts *TokenStore) Save(profile string, token *StoredToken) error {
	if profile == "" {
		return fmt.Errorf("profile cannot be empty")
	}

	data, err := yaml.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	dir := filepath.Join(ts.configPath, tokensDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	filePath := ts.path(profile)
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Debug("TokenStore", "Saved token for profile %s to %s", profile, filePath)
	return nil
}

// Load returns the cached token for profile, or ErrTokenNotFound.
func (ts *TokenStore) Load(profile string) (*StoredToken, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile cannot be empty")
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	filePath := ts.path(profile)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for profile %s", ErrTokenNotFound, profile)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	var token StoredToken
	if err := yaml.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return &token, nil
}

// Delete removes the cached token for profile. Deleting a missing token
// is not an error.
func (ts *TokenStore) Delete(profile string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := os.Remove(ts.path(profile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token for profile %s: %w", profile, err)
	}
	return nil
}

// List returns the profiles with a cached token, sorted.
func (ts *TokenStore) List() ([]string, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	files, err := filepath.Glob(filepath.Join(ts.configPath, tokensDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob token files: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(f), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

func (ts *TokenStore) path(profile string) string {
	return filepath.Join(ts.configPath, tokensDir, sanitizeFilename(profile)+".yaml")
}

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '.', ' ':
			return '_'
		}
		return r
	}, name)

	// Collapse multiple consecutive underscores to single underscore
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
