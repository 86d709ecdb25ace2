package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popauth/internal/cli"
	"popauth/internal/config"
	"popauth/internal/loopback"
)

// executeCommand runs the root command with args after resetting every
// flag variable, and returns what was written to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, profileName = "", ""
	logLevel, logFormat = "warn", "text"
	outputFormat, quiet, noColor = "table", false, false
	authorizeOpts = flowOptions{timeout: loopback.DefaultAbandonTimeout}
	refreshOpts = flowOptions{timeout: loopback.DefaultAbandonTimeout}
	refreshToken = ""
	logoutAll = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// tokenServer is a token endpoint for the client credentials and refresh
// grants. failRefresh makes every refresh grant fail with invalid_grant.
type tokenServer struct {
	*httptest.Server
	issued      atomic.Int32
	failRefresh bool
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := ts.issued.Add(1)
		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			if r.PostForm.Get("client_secret") != "s3cr3t" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"invalid_client"}`)
				return
			}
			fmt.Fprintf(w, `{"access_token":"cc-%d","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-%d"}`, n, n)
		case "refresh_token":
			if ts.failRefresh || !strings.HasPrefix(r.PostForm.Get("refresh_token"), "rt-") {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
				return
			}
			fmt.Fprintf(w, `{"access_token":"refreshed-%d","token_type":"Bearer","expires_in":600}`, n)
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"unsupported_grant_type"}`)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// writeConfig writes a config.yaml with one client credentials profile
// and returns the configuration directory.
func writeConfig(t *testing.T, tokenEndpoint string) string {
	t.Helper()
	t.Setenv("POPAUTH_TEST_SECRET", "s3cr3t")

	dir := t.TempDir()
	data := fmt.Sprintf(`defaultProfile: svc
profiles:
  svc:
    grant: client_credentials
    clientId: svc-client
    clientSecret: ${POPAUTH_TEST_SECRET}
    tokenEndpoint: %s/token
    scopes: [read, write]
  web:
    clientId: web-client
    authorizationEndpoint: https://idp.example.com/authorize
    tokenEndpoint: https://idp.example.com/token
`, tokenEndpoint)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0600))
	return dir
}

func decodeJSON(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestChallengeCommand(t *testing.T) {
	out, err := executeCommand(t, "challenge", "-o", "json")
	require.NoError(t, err)

	v := decodeJSON(t, out)
	assert.Len(t, v["codeVerifier"], 50)
	assert.Equal(t, "S256", v["codeChallengeMethod"])
	assert.NotContains(t, v["codeChallenge"], "=")
}

func TestExpiryCommand(t *testing.T) {
	t.Run("computes the date", func(t *testing.T) {
		before := time.Now()
		out, err := executeCommand(t, "expiry", "1000", "-o", "json")
		require.NoError(t, err)

		v := decodeJSON(t, out)
		date := int64(v["accessTokenExpirationDate"].(float64))
		assert.GreaterOrEqual(t, date, before.Add(900*time.Second).UnixMilli())
		assert.LessOrEqual(t, date, time.Now().Add(900*time.Second).UnixMilli())
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := executeCommand(t, "expiry", "soon")
		assert.ErrorContains(t, err, "invalid expires-in")
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, err := executeCommand(t, "expiry")
		assert.Error(t, err)
	})
}

func TestDiscoverCommand(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/oauth-authorization-server" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"issuer":%q,"authorization_endpoint":"%s/authorize","token_endpoint":"%s/token","code_challenge_methods_supported":["S256"]}`,
			srv.URL, srv.URL, srv.URL)
	}))
	defer srv.Close()

	out, err := executeCommand(t, "discover", srv.URL, "-o", "json")
	require.NoError(t, err)

	v := decodeJSON(t, out)
	assert.Equal(t, srv.URL+"/token", v["token_endpoint"])
	assert.Equal(t, srv.URL+"/authorize", v["authorization_endpoint"])

	t.Run("profile without issuer", func(t *testing.T) {
		dir := writeConfig(t, "https://idp.example.com")
		_, err := executeCommand(t, "discover", "--config", dir)
		assert.ErrorContains(t, err, "has no issuer")
	})
}

func TestAuthorizeAndRefreshClientCredentials(t *testing.T) {
	ts := newTokenServer(t)
	dir := writeConfig(t, ts.URL)

	out, err := executeCommand(t, "authorize", "--config", dir, "-q", "-o", "json", "--show-secrets")
	require.NoError(t, err)

	v := decodeJSON(t, out)
	assert.Equal(t, "svc", v["profile"])
	assert.Equal(t, "client_credentials", v["grant"])
	assert.Equal(t, "cc-1", v["accessToken"])
	assert.Equal(t, []interface{}{"read", "write"}, v["scopes"])

	stored, err := config.NewTokenStore(dir).Load("svc")
	require.NoError(t, err)
	assert.Equal(t, "cc-1", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken)

	out, err = executeCommand(t, "refresh", "--config", dir, "-q", "-o", "json", "--show-secrets")
	require.NoError(t, err)

	v = decodeJSON(t, out)
	assert.Equal(t, "refreshed-2", v["accessToken"])
	assert.Nil(t, v["reauthorized"])

	stored, err = config.NewTokenStore(dir).Load("svc")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-2", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken, "refresh token kept when the server omits it")
}

func TestRefreshFallsBackToClientCredentials(t *testing.T) {
	ts := newTokenServer(t)
	ts.failRefresh = true
	dir := writeConfig(t, ts.URL)

	out, err := executeCommand(t, "refresh", "--config", dir, "-q", "-o", "json", "--refresh-token", "rt-0", "--no-store")
	require.NoError(t, err)

	v := decodeJSON(t, out)
	assert.Equal(t, true, v["reauthorized"])
	assert.Equal(t, "****", v["accessToken"], "token masked without --show-secrets")

	_, err = config.NewTokenStore(dir).Load("svc")
	assert.ErrorIs(t, err, config.ErrTokenNotFound)
}

func TestRefreshWithoutCachedToken(t *testing.T) {
	ts := newTokenServer(t)
	dir := writeConfig(t, ts.URL)

	_, err := executeCommand(t, "refresh", "--config", dir, "-q")
	require.Error(t, err)

	var authRequired *cli.AuthRequiredError
	require.True(t, errors.As(err, &authRequired))
	assert.Equal(t, "svc", authRequired.Profile)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
	assert.Zero(t, ts.issued.Load())
}

func TestAuthorizeFailure(t *testing.T) {
	ts := newTokenServer(t)
	dir := writeConfig(t, ts.URL)
	t.Setenv("POPAUTH_TEST_SECRET", "wrong")

	_, err := executeCommand(t, "authorize", "--config", dir, "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
	assert.Contains(t, err.Error(), "status 401")
}

func TestProfilesAndLogout(t *testing.T) {
	ts := newTokenServer(t)
	dir := writeConfig(t, ts.URL)

	_, err := executeCommand(t, "authorize", "--config", dir, "-q", "-o", "json")
	require.NoError(t, err)

	out, err := executeCommand(t, "profiles", "--config", dir, "-o", "json")
	require.NoError(t, err)

	var rows []cli.ProfileRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "svc", rows[0].Name)
	assert.True(t, rows[0].Default)
	assert.True(t, strings.HasPrefix(rows[0].TokenState, "valid until"))
	assert.Equal(t, "web", rows[1].Name)
	assert.Equal(t, "none", rows[1].TokenState)

	out, err = executeCommand(t, "logout", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed cached token for profile svc")

	_, err = config.NewTokenStore(dir).Load("svc")
	assert.ErrorIs(t, err, config.ErrTokenNotFound)
}

func TestProfilesTableOutput(t *testing.T) {
	dir := writeConfig(t, "https://idp.example.com")

	out, err := executeCommand(t, "profiles", "--config", dir, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "svc-client")
	assert.Contains(t, out, "web-client")
}
