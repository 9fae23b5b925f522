package broker

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stitchd/go-auth-broker/broker/sessionrepo"
	"github.com/stitchd/go-auth-broker/provider"
)

// CallbackHandler receives the provider redirect. The state parameter
// must match the CSRF nonce of a live pending session; unknown, expired
// and mismatched states all render the same generic failure page so a
// probe cannot learn whether a session exists. Duplicate callbacks for
// an already-resolved session are accepted idempotently and never
// trigger a second token exchange.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		state := query.Get("state")
		errorParam := query.Get("error")

		// Malformed requests are rejected before the store is touched.
		if state == "" || (code == "" && errorParam == "") {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		rec, ok := s.sessions.GetByNonce(state)
		if !ok {
			s.renderFailurePage(w, "The authorization request is invalid or has expired. Retry the login from your client.")
			return
		}

		if rec.State != sessionrepo.StatePending {
			s.renderPriorOutcome(w, rec)
			return
		}

		// The user declined, or the provider reported an error. The
		// provider's own description is not echoed to the page.
		if errorParam != "" {
			log.Warn().Str("session_id", rec.ID).Str("error", errorParam).Msg("provider returned authorization error")
			_ = s.sessions.Fail(rec.ID, "authorization_denied", "the provider denied the authorization, retry the login")
			s.renderFailurePage(w, "The provider denied the authorization.")
			return
		}

		// Claim the session so concurrent duplicate callbacks perform at
		// most one token exchange between them.
		if err := s.sessions.Begin(rec.ID); err != nil {
			if cur, found := s.sessions.Get(rec.ID); found {
				s.renderPriorOutcome(w, cur)
				return
			}
			s.renderFailurePage(w, "The authorization request is invalid or has expired. Retry the login from your client.")
			return
		}

		cred, err := s.exchanger.Exchange(r.Context(), code, s.redirectURI)
		if err != nil {
			kind, msg := exchangeFailure(err)
			_ = s.sessions.Fail(rec.ID, kind, msg)
			s.renderFailurePage(w, "Something went wrong while completing the authorization.")
			return
		}

		if err := s.sessions.Complete(rec.ID, cred); err != nil {
			// The session expired mid-exchange; the credential is dropped.
			log.Warn().Str("session_id", rec.ID).Err(err).Msg("session unavailable after exchange")
			s.renderFailurePage(w, "The authorization expired before it could complete. Retry the login from your client.")
			return
		}

		log.Info().Str("session_id", rec.ID).Msg("token exchange successful")
		s.renderSuccessPage(w)
	}
}

// renderPriorOutcome serves a duplicate callback (browser back button,
// reload) the page matching the session's settled state.
func (s *Server) renderPriorOutcome(w http.ResponseWriter, rec sessionrepo.Record) {
	switch rec.State {
	case sessionrepo.StateCompleted:
		s.renderSuccessPage(w)
	case sessionrepo.StateFailed:
		s.renderFailurePage(w, "Something went wrong while completing the authorization.")
	default:
		// Claimed by a concurrent callback whose exchange is in flight.
		s.renderProcessingPage(w)
	}
}

// exchangeFailure maps an exchange error to a stored failure kind and a
// message safe to deliver to the polling client. The raw provider
// detail goes to the server log only.
func exchangeFailure(err error) (kind, msg string) {
	var exchangeErr *provider.ExchangeError
	if errors.As(err, &exchangeErr) {
		log.Error().
			Str("kind", string(exchangeErr.Kind)).
			Int("status", exchangeErr.Status).
			Str("detail", exchangeErr.Detail).
			Msg("token exchange failed")
		return string(exchangeErr.Kind), exchangeErr.Error()
	}

	log.Error().Err(err).Msg("token exchange failed")
	return string(provider.KindNetwork), "token exchange failed, retry the login"
}
