package broker

import (
	"fmt"
	"html/template"
	"net/http"
)

const pageCSS = `
    body {
        font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
        display: flex;
        justify-content: center;
        align-items: center;
        min-height: 100vh;
        margin: 0;
        background: #0a0a0a;
        color: #fff;
    }
    .container { text-align: center; padding: 2rem; max-width: 600px; }
    h1 { color: #00d4aa; }
    h1.error { color: #ff4444; }
    p { color: #888; line-height: 1.6; }
    a { color: #00d4aa; }
`

func (s *Server) renderSuccessPage(w http.ResponseWriter) {
	s.renderPage(w, http.StatusOK, "Authorization Complete", "",
		"You can close this window and return to your client.")
}

// renderFailurePage renders the generic failure page. The reason must
// already be sanitized; provider error bodies never reach it.
func (s *Server) renderFailurePage(w http.ResponseWriter, reason string) {
	s.renderPage(w, http.StatusOK, "Authorization Failed", "error", reason)
}

func (s *Server) renderProcessingPage(w http.ResponseWriter) {
	s.renderPage(w, http.StatusOK, "Authorization In Progress", "",
		"This authorization is already being completed. You can close this window.")
}

func (s *Server) renderPage(w http.ResponseWriter, status int, title, titleClass, body string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h1 class="%s">%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`,
		template.HTMLEscapeString(title), pageCSS, titleClass,
		template.HTMLEscapeString(title), template.HTMLEscapeString(body))
}

// IndexHandler serves a short landing page describing the service.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RouteIndex {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentTypeHTML)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>%[2]s</style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>This server completes the OAuth authorization flow on behalf of
        client applications, so the provider client secret never leaves it.
        Access tokens are handed directly back to your client and are not
        stored here.</p>
        <p><a href="/privacy-policy">Privacy</a> &middot; <a href="/tos">Terms</a></p>
    </div>
</body>
</html>`, template.HTMLEscapeString(s.config.GetAppName()), pageCSS)
	}
}

func (s *Server) PrivacyPolicyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Privacy Policy</title>
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h1>Privacy Policy</h1>
        <p>No analytics, no tracking, no cookies. Authorization sessions
        live in memory for a few minutes and access tokens are discarded
        the moment they are delivered to your client. Nothing is stored
        server-side, so there is nothing to delete.</p>
        <p><a href="/">Back to home</a></p>
    </div>
</body>
</html>`, pageCSS)
	}
}

func (s *Server) TermsOfUseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Terms of Service</title>
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h1>Terms of Service</h1>
        <p>The service is provided as is, free of charge, with no uptime
        guarantee. Do not abuse, overload, or attack it. You remain
        responsible for keeping the access tokens issued to your client
        secure.</p>
        <p><a href="/">Back to home</a></p>
    </div>
</body>
</html>`, pageCSS)
	}
}
