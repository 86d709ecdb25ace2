package oauth

import (
	"errors"
	"fmt"
)

// ErrorCode is an OAuth error code as carried in error responses and
// rejection messages, or one of the popup codes produced locally.
type ErrorCode string

// Authorization error codes, RFC 6749 section 4.1.2.1.
const (
	ErrorCodeUnauthorizedClient      ErrorCode = "unauthorized_client"
	ErrorCodeAccessDenied            ErrorCode = "access_denied"
	ErrorCodeUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrorCodeInvalidScope            ErrorCode = "invalid_scope"
	ErrorCodeServerError             ErrorCode = "server_error"
	ErrorCodeTemporarilyUnavailable  ErrorCode = "temporarily_unavailable"
)

// Token error codes, RFC 6749 section 5.2.
const (
	ErrorCodeInvalidRequest       ErrorCode = "invalid_request"
	ErrorCodeInvalidClient        ErrorCode = "invalid_client"
	ErrorCodeInvalidGrant         ErrorCode = "invalid_grant"
	ErrorCodeUnsupportedGrantType ErrorCode = "unsupported_grant_type"
)

// Popup error codes.
const (
	ErrorCodePopupClosedUnexpectedly ErrorCode = "popup_closed_unexpectedly"
	ErrorCodePopupNotOpened          ErrorCode = "popup_not_opened"
)

var (
	// ErrPopupNotOpened matches (errors.Is) any error raised because the
	// popup window could not be opened.
	ErrPopupNotOpened = &AuthError{Code: ErrorCodePopupNotOpened, Description: string(ErrorCodePopupNotOpened)}

	// ErrPopupClosedUnexpectedly matches any error raised because the user
	// closed the popup before the redirect page answered.
	ErrPopupClosedUnexpectedly = &AuthError{Code: ErrorCodePopupClosedUnexpectedly, Description: string(ErrorCodePopupClosedUnexpectedly)}

	// ErrInvalidConfiguration is wrapped by Validate failures.
	ErrInvalidConfiguration = errors.New("invalid oauth configuration")

	// ErrNoWindowOpener is returned by the default opener when the
	// Authenticator was built without WithWindowOpener.
	ErrNoWindowOpener = errors.New("no window opener configured")
)

// AuthError is an OAuth error with a code and a description. It is used
// for rejection messages from the redirect page and for popup failures.
type AuthError struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description,omitempty"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Description != "" && e.Description != string(e.Code) {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return string(e.Code)
}

// Unwrap returns the cause for error chain inspection.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is matches another *AuthError with the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsPopupError reports whether err was produced by the popup lifecycle
// rather than by the authorization server.
func IsPopupError(err error) bool {
	return errors.Is(err, ErrPopupNotOpened) || errors.Is(err, ErrPopupClosedUnexpectedly)
}

// TokenExchangeError is returned when the token endpoint answers with a
// status other than 200.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError is returned when the token endpoint body is not JSON.
type MalformedResponseError struct {
	Body string
	Err  error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("failed to parse token response: %v", e.Err)
}

// Unwrap returns the parse error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
