package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
)

// fakeWindow records how it is used by a popup session.
type fakeWindow struct {
	closed     atomic.Bool
	closeCalls atomic.Int32
}

func (w *fakeWindow) Closed() bool { return w.closed.Load() }

func (w *fakeWindow) Close() {
	w.closeCalls.Add(1)
	w.closed.Store(true)
}

// fakeOpener returns window (which may be nil) or err and records the URLs.
type fakeOpener struct {
	mu     sync.Mutex
	window Window
	err    error
	urls   []string

	// onOpen runs after the window is handed out, e.g. to post a message.
	onOpen func(url string)
}

func (o *fakeOpener) Open(_ context.Context, u string) (Window, error) {
	o.mu.Lock()
	o.urls = append(o.urls, u)
	o.mu.Unlock()

	if o.onOpen != nil {
		go o.onOpen(u)
	}
	return o.window, o.err
}

func (o *fakeOpener) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.urls)
}

func (o *fakeOpener) lastURL() *url.URL {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.urls) == 0 {
		return nil
	}
	u, _ := url.Parse(o.urls[len(o.urls)-1])
	return u
}

// countingSource wraps a MessageBus and counts listener removals.
type countingSource struct {
	*MessageBus
	removals atomic.Int32
}

func newCountingSource() *countingSource {
	return &countingSource{MessageBus: NewMessageBus()}
}

func (s *countingSource) AddListener(h MessageHandler) func() {
	remove := s.MessageBus.AddListener(h)
	return func() {
		s.removals.Add(1)
		remove()
	}
}

// fakeTransport answers token requests from a queue of responses.
type fakeTransport struct {
	mu        sync.Mutex
	responses []fakeResponse
	requests  []fakeRequest
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

type fakeRequest struct {
	endpoint    string
	form        url.Values
	contentType ContentType
}

func (t *fakeTransport) PostForm(_ context.Context, endpoint string, form url.Values, contentType ContentType) (*TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, fakeRequest{endpoint: endpoint, form: form, contentType: contentType})
	if len(t.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	r := t.responses[0]
	t.responses = t.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &TransportResponse{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (t *fakeTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *fakeTransport) request(i int) fakeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests[i]
}

func tokenJSON(access, refresh string, expiresIn int) string {
	b, _ := json.Marshal(map[string]interface{}{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
		"refresh_token": refresh,
	})
	return string(b)
}

func message(fields map[string]string) string {
	b, _ := json.Marshal(fields)
	return string(b)
}

// errorRecorder collects errors passed to OnError.
type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) callback(err error, _ Configuration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *errorRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *errorRecorder) last() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}

const (
	testAuthorized = "oauth:authorized"
	testRejected   = "oauth:rejected"
)

func newCodeConfig(rec *errorRecorder) *AuthorizationCodeConfig {
	return &AuthorizationCodeConfig{
		BaseConfiguration: BaseConfiguration{
			ClientID: "client-1",
			Scopes:   []string{"read", "write"},
			ServiceConfiguration: ServiceConfiguration{
				AuthorizationEndpoint: "https://auth.example.com/oauth/authorize",
				TokenEndpoint:         "https://auth.example.com/oauth/token",
				ContentType:           ContentTypeFormURLEncoded,
			},
			OnError: rec.callback,
		},
		RedirectConfiguration: RedirectConfiguration{
			URL:               "https://app.example.com/redirect",
			AuthorizedMessage: testAuthorized,
			RejectedMessage:   testRejected,
		},
	}
}

func newCredentialsConfig(rec *errorRecorder) *ClientCredentialsConfig {
	return &ClientCredentialsConfig{
		BaseConfiguration: BaseConfiguration{
			ClientID:     "service-1",
			ClientSecret: "s3cret",
			ServiceConfiguration: ServiceConfiguration{
				TokenEndpoint: "https://auth.example.com/oauth/token",
			},
			OnError: rec.callback,
		},
	}
}
