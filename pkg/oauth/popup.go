package oauth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// DefaultPollInterval is how often the popup is checked for being closed.
const DefaultPollInterval = 500 * time.Millisecond

// popupState is the state of a popup session. Only popupPending can
// transition, and it does so once.
type popupState int

const (
	popupPending popupState = iota
	popupResolved
	popupRejected
	popupClosedByUser
)

func (s popupState) String() string {
	switch s {
	case popupPending:
		return "pending"
	case popupResolved:
		return "resolved"
	case popupRejected:
		return "rejected"
	case popupClosedByUser:
		return "closed_by_user"
	default:
		return "unknown"
	}
}

type popupOutcome struct {
	code string
	err  error
}

// popupSession waits for the redirect page of one authorization attempt.
// The listener is registered before the window opens so that an
// immediate redirect is not lost. The window, the listener and the poll
// ticker are owned by the session and released together by teardown.
type popupSession struct {
	id       string
	redirect RedirectConfiguration
	logger   *slog.Logger

	mu             sync.Mutex
	state          popupState
	window         Window
	removeListener func()
	ticker         *time.Ticker
	tornDown       bool

	teardownOnce sync.Once
	done         chan struct{}
	outcome      chan popupOutcome
}

func newPopupSession(redirect RedirectConfiguration, logger *slog.Logger) *popupSession {
	id := uuid.New().String()
	return &popupSession{
		id:       id,
		redirect: redirect,
		logger:   logger.With("popup_session", id),
		done:     make(chan struct{}),
		outcome:  make(chan popupOutcome, 1),
	}
}

// listen registers the message listener. A message may settle the
// session before a window is attached.
func (s *popupSession) listen(messages MessageSource) {
	remove := messages.AddListener(s.handleMessage)

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		remove()
		return
	}
	s.removeListener = remove
	s.mu.Unlock()
}

// attach hands the opened window to the session and begins polling it.
// A window attached to a finished session is closed at once.
func (s *popupSession) attach(window Window, interval time.Duration) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		window.Close()
		return
	}
	s.window = window
	s.ticker = time.NewTicker(interval)
	go s.poll(window, s.ticker.C)
	s.mu.Unlock()
}

// wait blocks until the session leaves the pending state. Cancelling ctx
// rejects the session with the context error.
func (s *popupSession) wait(ctx context.Context) (string, error) {
	select {
	case o := <-s.outcome:
		return o.code, o.err
	case <-ctx.Done():
		s.transition(popupRejected, popupOutcome{err: ctx.Err()})
		o := <-s.outcome
		return o.code, o.err
	}
}

func (s *popupSession) handleMessage(data string) {
	if !gjson.Valid(data) {
		s.logger.Debug("Ignoring non-JSON message")
		return
	}

	name := gjson.Get(data, "name")
	if !name.Exists() {
		return
	}

	switch name.String() {
	case s.redirect.AuthorizedMessage:
		s.transition(popupResolved, popupOutcome{code: gjson.Get(data, "code").String()})
	case s.redirect.RejectedMessage:
		s.transition(popupRejected, popupOutcome{err: &AuthError{
			Code:        ErrorCode(gjson.Get(data, "error").String()),
			Description: gjson.Get(data, "error_description").String(),
		}})
	}
}

func (s *popupSession) poll(window Window, tick <-chan time.Time) {
	for {
		select {
		case <-s.done:
			return
		case <-tick:
			if window.Closed() {
				s.transition(popupClosedByUser, popupOutcome{err: ErrPopupClosedUnexpectedly})
				return
			}
		}
	}
}

// transition moves a pending session to next, tears the session down and
// publishes the outcome. It reports false if the session had already left
// the pending state.
func (s *popupSession) transition(next popupState, o popupOutcome) bool {
	s.mu.Lock()
	if s.state != popupPending {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Popup session finished", "state", next.String())
	s.teardown()
	s.outcome <- o
	return true
}

func (s *popupSession) teardown() {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		s.tornDown = true
		window, remove, ticker := s.window, s.removeListener, s.ticker
		s.mu.Unlock()

		if window != nil {
			window.Close()
		}
		if remove != nil {
			remove()
		}
		if ticker != nil {
			ticker.Stop()
		}
		close(s.done)
	})
}

// BuildAuthorizationURL returns the authorization request URL. Scopes are
// joined with '+'. The code challenge is added when challenge is non-nil.
func BuildAuthorizationURL(cfg *AuthorizationCodeConfig, challenge *CodeChallenge) string {
	scopes := make([]string, len(cfg.Scopes))
	for i, scope := range cfg.Scopes {
		scopes[i] = url.QueryEscape(scope)
	}

	params := []string{
		"response_type=code",
		"client_id=" + url.QueryEscape(cfg.ClientID),
		"scope=" + strings.Join(scopes, "+"),
		"redirect_uri=" + url.QueryEscape(cfg.RedirectConfiguration.URL),
	}
	if challenge != nil {
		params = append(params,
			"code_challenge_method="+CodeChallengeMethod,
			"code_challenge="+challenge.Challenge,
		)
	}

	endpoint := cfg.ServiceConfiguration.AuthorizationEndpoint
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + strings.Join(params, "&")
}
