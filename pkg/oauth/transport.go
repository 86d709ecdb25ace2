package oauth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultHTTPTimeout is the default timeout for token endpoint requests.
const DefaultHTTPTimeout = 30 * time.Second

// Transport sends a form POST and returns the raw response.
// Implementations must not interpret the status code.
type Transport interface {
	PostForm(ctx context.Context, endpoint string, form url.Values, contentType ContentType) (*TransportResponse, error)
}

// TransportResponse is the status and body of a token endpoint response.
type TransportResponse struct {
	StatusCode int
	Body       []byte
}

// HTTPTransport is the default Transport backed by an *http.Client.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport. A nil client gets a client with
// DefaultHTTPTimeout.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPTransport{client: client}
}

// PostForm implements Transport. ContentTypeFormURLEncoded sends a
// URL-encoded body; anything else sends multipart/form-data.
func (t *HTTPTransport) PostForm(ctx context.Context, endpoint string, form url.Values, contentType ContentType) (*TransportResponse, error) {
	var (
		body       io.Reader
		contentHdr string
	)

	if contentType == ContentTypeFormURLEncoded {
		body = strings.NewReader(form.Encode())
		contentHdr = "application/x-www-form-urlencoded"
	} else {
		var err error
		body, contentHdr, err = encodeMultipart(form)
		if err != nil {
			return nil, fmt.Errorf("failed to encode form body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", contentHdr)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	return &TransportResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// encodeMultipart writes form as multipart/form-data with keys in sorted order.
func encodeMultipart(form url.Values) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range form[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
