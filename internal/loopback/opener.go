package loopback

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/skratchdot/open-golang/open"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"popauth/pkg/oauth"
)

// DefaultAbandonTimeout is how long a window waits for the callback before
// it reports itself closed.
const DefaultAbandonTimeout = 10 * time.Minute

// shutdownTimeout bounds the graceful shutdown of the callback server.
const shutdownTimeout = 5 * time.Second

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html"))

// openBrowser launches the system browser. Replaced in tests.
var openBrowser = open.Start

// Options configures an Opener.
type Options struct {
	// RedirectURL is the registered redirect URI. Its host must be a
	// loopback address with an explicit port.
	RedirectURL string

	// AuthorizedMessage and RejectedMessage are the message names the
	// callback posts, matching the authorization code configuration.
	AuthorizedMessage string
	RejectedMessage   string

	// Bus receives the callback messages. It must be the MessageSource
	// given to the oauth.Authenticator.
	Bus *oauth.MessageBus

	// ClientName is shown on the result page.
	ClientName string

	// AbandonTimeout defaults to DefaultAbandonTimeout.
	AbandonTimeout time.Duration

	// NoBrowser skips launching the browser; the URL is only printed.
	NoBrowser bool

	// Out receives the authorization URL when the browser is not launched
	// or fails to launch. Nil discards it.
	Out io.Writer

	Logger *slog.Logger
}

// Opener opens loopback-hosted popup windows.
type Opener struct {
	opts Options
}

// NewOpener validates opts and returns an Opener.
func NewOpener(opts Options) (*Opener, error) {
	if opts.Bus == nil {
		return nil, errors.New("loopback: a message bus is required")
	}
	if _, err := listenAddress(opts.RedirectURL); err != nil {
		return nil, err
	}
	if opts.AbandonTimeout <= 0 {
		opts.AbandonTimeout = DefaultAbandonTimeout
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Opener{opts: opts}, nil
}

// listenAddress returns host:port for a loopback redirect URL.
func listenAddress(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("loopback: invalid redirect URL: %w", err)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("loopback: redirect URL must use http, got %q", u.Scheme)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("loopback: redirect URL %s has no port", redirectURL)
	}

	host := u.Hostname()
	if host == "localhost" {
		return net.JoinHostPort("127.0.0.1", u.Port()), nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return "", fmt.Errorf("loopback: redirect host %q is not a loopback address", host)
	}
	return u.Host, nil
}

// Open implements oauth.WindowOpener. It fails only if the callback
// server cannot listen; a browser that fails to launch is reported by
// printing the URL instead.
func (o *Opener) Open(ctx context.Context, authURL string) (oauth.Window, error) {
	addr, err := listenAddress(o.opts.RedirectURL)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	w := o.serve(ctx, ln)
	o.launch(authURL)
	return w, nil
}

func (o *Opener) launch(authURL string) {
	if o.opts.NoBrowser {
		fmt.Fprintf(o.opts.Out, "Open the following URL in your browser to authorize:\n\n  %s\n\n", authURL)
		return
	}

	if err := openBrowser(authURL); err != nil {
		o.opts.Logger.Warn("Could not open browser", "error", err)
		fmt.Fprintf(o.opts.Out, "Could not open a browser. Visit this URL to authorize:\n\n  %s\n\n", authURL)
	}
}

// serve starts the callback server on ln and returns its Window.
func (o *Opener) serve(ctx context.Context, ln net.Listener) *window {
	redirect, _ := url.Parse(o.opts.RedirectURL)
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	w := &window{
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, o.callbackHandler(w))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(o.opts.AbandonTimeout)
		defer timer.Stop()

		select {
		case <-w.closing:
		case <-gctx.Done():
		case <-timer.C:
			o.opts.Logger.Info("No callback received, giving up", "timeout", o.opts.AbandonTimeout)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	go func() {
		if err := g.Wait(); err != nil {
			o.opts.Logger.Debug("Callback server stopped", "error", err)
		}
		w.closed.Store(true)
		close(w.stopped)
	}()

	o.opts.Logger.Debug("Callback server listening", "address", ln.Addr().String(), "path", path)
	return w
}

type pageData struct {
	Title       string
	Client      string
	Error       string
	Description string
}

// callbackHandler answers the first request on the redirect path and
// posts the matching message to the bus.
func (o *Opener) callbackHandler(w *window) http.HandlerFunc {
	var handled atomic.Bool

	return func(rw http.ResponseWriter, r *http.Request) {
		if !handled.CompareAndSwap(false, true) {
			http.Error(rw, "Callback already processed", http.StatusBadRequest)
			return
		}

		rw.Header().Set("X-Content-Type-Options", "nosniff")
		rw.Header().Set("X-Frame-Options", "DENY")
		rw.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
		rw.Header().Set("Referrer-Policy", "no-referrer")
		rw.Header().Set("Cache-Control", "no-store")

		query := r.URL.Query()
		msg, page, data, err := o.callbackMessage(query.Get("code"), query.Get("error"), query.Get("error_description"))
		if err != nil {
			o.opts.Logger.Error("Failed to build callback message", "error", err)
			http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
			w.Close()
			return
		}

		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pages.ExecuteTemplate(rw, page, data); err != nil {
			o.opts.Logger.Error("Failed to render callback page", "error", err)
		}

		o.opts.Bus.Post(msg)
	}
}

// callbackMessage builds the message the redirect page would post. A
// callback with neither code nor error is treated as a rejection.
func (o *Opener) callbackMessage(code, errCode, description string) (msg, page string, data pageData, err error) {
	data.Client = o.opts.ClientName

	if code != "" && errCode == "" {
		data.Title = "Authorization complete"
		msg, err = buildMessage(o.opts.AuthorizedMessage, map[string]string{"code": code})
		return msg, "authorized.html", data, err
	}

	if errCode == "" {
		errCode = string(oauth.ErrorCodeInvalidRequest)
		description = "The callback carried neither a code nor an error."
	}
	data.Title = "Authorization failed"
	data.Error = errCode
	data.Description = description
	msg, err = buildMessage(o.opts.RejectedMessage, map[string]string{
		"error":             errCode,
		"error_description": description,
	})
	return msg, "rejected.html", data, err
}

func buildMessage(name string, fields map[string]string) (string, error) {
	msg, err := sjson.Set("", "name", name)
	if err != nil {
		return "", err
	}
	for k, v := range fields {
		if msg, err = sjson.Set(msg, k, v); err != nil {
			return "", err
		}
	}
	return msg, nil
}

// window is the Window of one loopback authorization attempt.
type window struct {
	closed    atomic.Bool
	closeOnce sync.Once
	closing   chan struct{}
	stopped   chan struct{}
}

// Closed implements oauth.Window.
func (w *window) Closed() bool {
	return w.closed.Load()
}

// Close implements oauth.Window. The server shuts down in the background.
func (w *window) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.closing)
	})
}
