package broker

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stitchd/go-auth-broker/broker/sessionrepo"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

type startResponse struct {
	SessionID    string `json:"session_id"`
	AuthorizeURL string `json:"authorize_url"`
}

type pollResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// StartHandler creates a new pending session and hands the caller the
// provider authorization URL to open in a browser. The session's CSRF
// nonce travels as the provider state parameter.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.sessions.Create(s.config.GetSessionTTL())
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		log.Info().Str("session_id", rec.ID).Msg("created auth session")

		writeJSON(w, http.StatusOK, startResponse{
			SessionID:    rec.ID,
			AuthorizeURL: s.exchanger.AuthorizeURL(s.redirectURI, rec.Nonce),
		})
	}
}

// PollHandler reports session progress to the waiting client. A
// resolved session is consumed on delivery, so the credential can be
// fetched exactly once; any later poll sees "expired".
func (s *Server) PollHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("session_id")
		if sessionID == "" {
			http.Error(w, "Missing session id", http.StatusBadRequest)
			return
		}

		rec, ok := s.sessions.Get(sessionID)
		if !ok {
			writeJSON(w, http.StatusOK, pollResponse{Status: StatusExpired})
			return
		}
		if rec.State == sessionrepo.StatePending {
			writeJSON(w, http.StatusOK, pollResponse{Status: StatusPending})
			return
		}

		// Terminal: consume atomically. Losing the race to a concurrent
		// poll means the outcome was already delivered.
		rec, ok = s.sessions.Consume(sessionID)
		if !ok {
			writeJSON(w, http.StatusOK, pollResponse{Status: StatusExpired})
			return
		}

		switch rec.State {
		case sessionrepo.StateCompleted:
			writeJSON(w, http.StatusOK, pollResponse{
				Status:      StatusCompleted,
				AccessToken: rec.Credential.AccessToken,
			})
		default:
			writeJSON(w, http.StatusOK, pollResponse{
				Status: StatusFailed,
				Error:  rec.FailureError,
			})
		}
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
