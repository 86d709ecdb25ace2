package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMetadataCacheTTL is the default TTL for cached server metadata.
const DefaultMetadataCacheTTL = 30 * time.Minute

// Metadata is OAuth 2.0 Authorization Server Metadata (RFC 8414), limited
// to the fields this package uses.
type Metadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE returns true if the server supports S256 PKCE.
func (m *Metadata) SupportsPKCE() bool {
	for _, method := range m.CodeChallengeMethodsSupported {
		if method == CodeChallengeMethod {
			return true
		}
	}
	// Servers that don't advertise methods are assumed to accept S256.
	return len(m.CodeChallengeMethodsSupported) == 0
}

// SupportsGrant reports whether the server advertises grant. Servers that
// omit grant_types_supported default to authorization_code and implicit.
func (m *Metadata) SupportsGrant(grant GrantType) bool {
	if len(m.GrantTypesSupported) == 0 {
		return grant == GrantTypeAuthorizationCode
	}
	for _, g := range m.GrantTypesSupported {
		if GrantType(g) == grant {
			return true
		}
	}
	return false
}

// ServiceConfiguration returns the endpoints as a ServiceConfiguration.
func (m *Metadata) ServiceConfiguration(contentType ContentType) ServiceConfiguration {
	return ServiceConfiguration{
		AuthorizationEndpoint: m.AuthorizationEndpoint,
		TokenEndpoint:         m.TokenEndpoint,
		ContentType:           contentType,
	}
}

type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Discoverer fetches and caches authorization server metadata.
type Discoverer struct {
	httpClient *http.Client
	logger     *slog.Logger

	metadataMu    sync.RWMutex
	metadataCache map[string]*metadataCacheEntry
	metadataTTL   time.Duration

	// deduplicates concurrent fetches for the same issuer
	metadataGroup singleflight.Group
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithDiscoveryHTTPClient sets a custom HTTP client.
func WithDiscoveryHTTPClient(httpClient *http.Client) DiscovererOption {
	return func(d *Discoverer) {
		d.httpClient = httpClient
	}
}

// WithDiscoveryLogger sets a custom logger.
func WithDiscoveryLogger(logger *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// WithMetadataCacheTTL sets the metadata cache TTL.
func WithMetadataCacheTTL(ttl time.Duration) DiscovererOption {
	return func(d *Discoverer) {
		d.metadataTTL = ttl
	}
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		logger:        slog.Default(),
		metadataCache: make(map[string]*metadataCacheEntry),
		metadataTTL:   DefaultMetadataCacheTTL,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Discover fetches metadata from the issuer's well-known endpoint.
// It tries RFC 8414 (/.well-known/oauth-authorization-server) first,
// then falls back to OpenID Connect (/.well-known/openid-configuration).
func (d *Discoverer) Discover(ctx context.Context, issuer string) (*Metadata, error) {
	issuer = strings.TrimSuffix(issuer, "/")

	if m := d.cached(issuer); m != nil {
		return m, nil
	}

	result, err, _ := d.metadataGroup.Do(issuer, func() (interface{}, error) {
		if m := d.cached(issuer); m != nil {
			return m, nil
		}
		return d.discover(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Metadata), nil
}

func (d *Discoverer) cached(issuer string) *Metadata {
	d.metadataMu.RLock()
	defer d.metadataMu.RUnlock()

	if entry, ok := d.metadataCache[issuer]; ok && time.Since(entry.fetchedAt) < d.metadataTTL {
		return entry.metadata
	}
	return nil
}

func (d *Discoverer) discover(ctx context.Context, issuer string) (*Metadata, error) {
	metadata, err := d.fetchMetadata(ctx, issuer+"/.well-known/oauth-authorization-server")
	if err == nil {
		d.cacheMetadata(issuer, metadata)
		return metadata, nil
	}

	d.logger.Debug("RFC 8414 metadata fetch failed, trying OIDC",
		"issuer", issuer,
		"error", err)

	metadata, err = d.fetchMetadata(ctx, issuer+"/.well-known/openid-configuration")
	if err == nil {
		d.cacheMetadata(issuer, metadata)
		return metadata, nil
	}

	return nil, fmt.Errorf("failed to discover OAuth metadata for %s: %w", issuer, err)
}

func (d *Discoverer) fetchMetadata(ctx context.Context, metadataURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var metadata Metadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata.TokenEndpoint == "" {
		return nil, fmt.Errorf("metadata at %s has no token_endpoint", metadataURL)
	}

	return &metadata, nil
}

func (d *Discoverer) cacheMetadata(issuer string, metadata *Metadata) {
	d.metadataMu.Lock()
	d.metadataCache[issuer] = &metadataCacheEntry{
		metadata:  metadata,
		fetchedAt: time.Now(),
	}
	d.metadataMu.Unlock()

	d.logger.Debug("Cached OAuth metadata",
		"issuer", issuer,
		"authorization_endpoint", metadata.AuthorizationEndpoint,
		"token_endpoint", metadata.TokenEndpoint)
}

// ClearMetadataCache drops all cached metadata.
func (d *Discoverer) ClearMetadataCache() {
	d.metadataMu.Lock()
	d.metadataCache = make(map[string]*metadataCacheEntry)
	d.metadataMu.Unlock()
}
