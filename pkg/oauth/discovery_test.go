package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDiscoverer(t *testing.T) {
	t.Run("creates discoverer with defaults", func(t *testing.T) {
		d := NewDiscoverer()
		if d.httpClient == nil {
			t.Error("expected httpClient to be set")
		}
		if d.logger == nil {
			t.Error("expected logger to be set")
		}
		if d.metadataTTL != DefaultMetadataCacheTTL {
			t.Errorf("expected metadataTTL to be %v, got %v", DefaultMetadataCacheTTL, d.metadataTTL)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		customHTTP := &http.Client{Timeout: 10 * time.Second}
		d := NewDiscoverer(
			WithDiscoveryHTTPClient(customHTTP),
			WithMetadataCacheTTL(5*time.Minute),
		)
		if d.httpClient != customHTTP {
			t.Error("expected custom httpClient to be set")
		}
		if d.metadataTTL != 5*time.Minute {
			t.Errorf("expected metadataTTL to be 5m, got %v", d.metadataTTL)
		}
	})
}

func metadataServer(t *testing.T, path string, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&Metadata{
			Issuer:                        "https://issuer.example.com",
			AuthorizationEndpoint:         "https://issuer.example.com/authorize",
			TokenEndpoint:                 "https://issuer.example.com/token",
			GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
			CodeChallengeMethodsSupported: []string{"S256"},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDiscover(t *testing.T) {
	t.Run("discovers via RFC 8414 endpoint", func(t *testing.T) {
		server := metadataServer(t, "/.well-known/oauth-authorization-server", nil)

		m, err := NewDiscoverer().Discover(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.TokenEndpoint != "https://issuer.example.com/token" {
			t.Errorf("unexpected token endpoint %q", m.TokenEndpoint)
		}
	})

	t.Run("falls back to OpenID configuration", func(t *testing.T) {
		server := metadataServer(t, "/.well-known/openid-configuration", nil)

		m, err := NewDiscoverer().Discover(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.AuthorizationEndpoint != "https://issuer.example.com/authorize" {
			t.Errorf("unexpected authorization endpoint %q", m.AuthorizationEndpoint)
		}
	})

	t.Run("fails when both endpoints fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		if _, err := NewDiscoverer().Discover(context.Background(), server.URL); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rejects metadata without token endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"issuer":"x","authorization_endpoint":"https://x/authorize"}`))
		}))
		defer server.Close()

		if _, err := NewDiscoverer().Discover(context.Background(), server.URL); err == nil {
			t.Error("expected error for missing token_endpoint")
		}
	})

	t.Run("caches metadata", func(t *testing.T) {
		var calls int32
		server := metadataServer(t, "/.well-known/oauth-authorization-server", &calls)
		d := NewDiscoverer()

		for i := 0; i < 3; i++ {
			if _, err := d.Discover(context.Background(), server.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected 1 server call, got %d", got)
		}

		d.ClearMetadataCache()
		if _, err := d.Discover(context.Background(), server.URL+"/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("expected 2 server calls after clearing cache, got %d", got)
		}
	})

	t.Run("expired entries are fetched again", func(t *testing.T) {
		var calls int32
		server := metadataServer(t, "/.well-known/oauth-authorization-server", &calls)
		d := NewDiscoverer(WithMetadataCacheTTL(time.Millisecond))

		_, _ = d.Discover(context.Background(), server.URL)
		time.Sleep(5 * time.Millisecond)
		_, _ = d.Discover(context.Background(), server.URL)

		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("expected 2 server calls, got %d", got)
		}
	})

	t.Run("concurrent requests share one fetch", func(t *testing.T) {
		var calls int32
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			<-release
			_, _ = w.Write([]byte(`{"token_endpoint":"https://x/token"}`))
		}))
		defer server.Close()

		d := NewDiscoverer()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = d.Discover(context.Background(), server.URL)
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected 1 server call (singleflight), got %d", got)
		}
	})
}

func TestMetadata(t *testing.T) {
	m := &Metadata{
		AuthorizationEndpoint: "https://a/authorize",
		TokenEndpoint:         "https://a/token",
	}

	if !m.SupportsPKCE() {
		t.Error("expected PKCE to be assumed when methods are not advertised")
	}
	if !m.SupportsGrant(GrantTypeAuthorizationCode) || m.SupportsGrant(GrantTypeClientCredentials) {
		t.Error("expected authorization_code to be the only default grant")
	}

	m.CodeChallengeMethodsSupported = []string{"plain"}
	m.GrantTypesSupported = []string{"client_credentials"}
	if m.SupportsPKCE() {
		t.Error("expected PKCE to be unsupported with only plain")
	}
	if !m.SupportsGrant(GrantTypeClientCredentials) {
		t.Error("expected client_credentials to be supported")
	}

	svc := m.ServiceConfiguration(ContentTypeFormData)
	if svc.TokenEndpoint != "https://a/token" || svc.ContentType != ContentTypeFormData {
		t.Errorf("unexpected service configuration %+v", svc)
	}
}
