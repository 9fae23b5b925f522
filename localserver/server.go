// Package localserver runs the ephemeral HTTPS listener for the
// no-broker login flow: it accepts exactly one correctly-nonced
// provider redirect, hands the authorization code back to the caller,
// and shuts down.
package localserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	autherrors "github.com/stitchd/go-auth-broker/internal/errors"
)

// DefaultPort is the fixed local port the provider app is registered
// against.
const DefaultPort = 1337

// ErrAuthorizationDenied is returned when the provider redirects back
// with an error instead of a code.
var ErrAuthorizationDenied = errors.New("authorization denied by provider")

type callbackResult struct {
	code string
	err  error
}

// Server is a single-shot callback listener. Requests whose state does
// not match the expected nonce are rejected without ending the wait, so
// a hostile local page cannot race the real redirect to a resolution.
type Server struct {
	nonce      string
	port       int
	listener   net.Listener
	httpServer *http.Server

	resolveOnce sync.Once
	closeOnce   sync.Once
	result      chan callbackResult
}

type Option func(*serverOptions)

type serverOptions struct {
	cert *tls.Certificate
}

// WithCertificate supplies TLS material instead of generating a
// throwaway self-signed certificate.
func WithCertificate(cert tls.Certificate) Option {
	return func(o *serverOptions) {
		o.cert = &cert
	}
}

// New binds the loopback listener immediately, so a port conflict
// surfaces before the browser is opened.
func New(port int, nonce string, opts ...Option) (*Server, error) {
	if nonce == "" {
		return nil, fmt.Errorf("[localserver New] nonce is required")
	}

	var options serverOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.cert == nil {
		cert, err := GenerateLocalhostCert()
		if err != nil {
			return nil, err
		}
		options.cert = &cert
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("[localserver New] failed to bind port %d: %w", port, err)
	}

	s := &Server{
		nonce:    nonce,
		port:     listener.Addr().(*net.TCPAddr).Port,
		listener: listener,
		result:   make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", s.callbackHandler)
	mux.HandleFunc("GET /deauthorize", staticPage("Deauthorized", "The application has been deauthorized."))
	mux.HandleFunc("GET /delete", staticPage("Deleted", "Your data has been deleted."))

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	tlsListener := tls.NewListener(listener, &tls.Config{
		Certificates: []tls.Certificate{*options.cert},
	})
	go func() {
		if err := s.httpServer.Serve(tlsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.resolve(callbackResult{err: fmt.Errorf("callback server stopped: %w", err)})
		}
	}()

	return s, nil
}

// RedirectURI is the redirect_uri to register the authorization request
// with.
func (s *Server) RedirectURI() string {
	return fmt.Sprintf("https://localhost:%d/callback", s.port)
}

// Wait blocks until the first valid callback arrives, the timeout
// elapses, or ctx is cancelled. The listener is torn down before Wait
// returns, whatever the outcome, so the port is never left bound.
func (s *Server) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	defer s.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-s.result:
		return res.code, res.err
	case <-timer.C:
		return "", autherrors.Wrapf(autherrors.ErrTimeout, "no authorization callback within %s", timeout)
	case <-ctx.Done():
		return "", autherrors.ErrCancelled
	}
}

// Close stops the listener. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		_ = s.httpServer.Close()
	})
}

func (s *Server) callbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Only the request carrying the expected nonce may resolve the
	// wait; anything else is turned away and the listener keeps going.
	if query.Get("state") != s.nonce {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, renderPage("Request Rejected", "This authorization response does not match the pending login."))
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		reason := query.Get("error_description")
		if reason == "" {
			reason = errParam
		}
		s.resolve(callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, reason)})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, renderPage("Authorization Failed", "The authorization was not granted. You can close this window."))
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	s.resolve(callbackResult{code: code})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderPage("Authorization Complete", "You can close this window and return to your client."))
}

func (s *Server) resolve(res callbackResult) {
	s.resolveOnce.Do(func() {
		s.result <- res
	})
}

func staticPage(title, body string) http.HandlerFunc {
	page := renderPage(title, body)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}
}

func renderPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #0a0a0a;
            color: #fff;
        }
        .container { text-align: center; padding: 2rem; }
        h1 { color: #00d4aa; }
        p { color: #888; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, template.HTMLEscapeString(title), template.HTMLEscapeString(title), template.HTMLEscapeString(body))
}
