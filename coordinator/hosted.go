package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	autherrors "github.com/stitchd/go-auth-broker/internal/errors"
	"github.com/stitchd/go-auth-broker/provider"
)

type startResponse struct {
	SessionID    string `json:"session_id"`
	AuthorizeURL string `json:"authorize_url"`
}

type pollResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// hostedLogin drives the broker-mediated flow: start a session, send
// the user's browser to the provider, then poll until the broker hands
// back the credential or the attempt dies.
func (c *Coordinator) hostedLogin(ctx context.Context) (*provider.Credential, error) {
	base := strings.TrimRight(c.opts.BrokerURL, "/")

	start, err := c.startSession(ctx, base)
	if err != nil {
		return nil, err
	}

	c.openBrowser(start.AuthorizeURL)

	return c.pollSession(ctx, fmt.Sprintf("%s/auth/poll/%s", base, start.SessionID))
}

func (c *Coordinator) startSession(ctx context.Context, base string) (*startResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/auth/start", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("[coordinator startSession] %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach the auth server, check your connection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth server refused to start a session (HTTP %d), retry later", resp.StatusCode)
	}

	var start startResponse
	if err := json.NewDecoder(resp.Body).Decode(&start); err != nil {
		return nil, fmt.Errorf("invalid response from auth server: %w", err)
	}
	if start.SessionID == "" || start.AuthorizeURL == "" {
		return nil, fmt.Errorf("invalid response from auth server: missing session id or authorize url")
	}
	return &start, nil
}

// pollSession loops on a fixed interval under an overall deadline. A
// pending status keeps the loop going; transport errors are tolerated a
// bounded number of times in a row; an expired session aborts at once
// since it can never resolve.
func (c *Coordinator) pollSession(ctx context.Context, pollURL string) (*provider.Credential, error) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.opts.PollTimeout)
	defer deadline.Stop()

	transportFailures := 0
	for {
		select {
		case <-ctx.Done():
			return nil, autherrors.ErrCancelled
		case <-deadline.C:
			return nil, autherrors.Wrapf(autherrors.ErrTimeout, "authorization not completed within %s, retry login", c.opts.PollTimeout)
		case <-ticker.C:
		}

		poll, err := c.pollOnce(ctx, pollURL)
		if err != nil {
			transportFailures++
			if transportFailures >= maxTransportFailures {
				return nil, fmt.Errorf("lost contact with the auth server, retry login: %w", err)
			}
			c.opts.Logger.Warn().Err(err).Int("failures", transportFailures).Msg("poll attempt failed")
			continue
		}
		transportFailures = 0

		switch poll.Status {
		case "pending":
			continue
		case "completed":
			return &provider.Credential{
				AccessToken: poll.AccessToken,
				ObtainedAt:  time.Now(),
			}, nil
		case "failed":
			return nil, fmt.Errorf("authorization failed (%s), retry login", poll.Error)
		case "expired":
			return nil, autherrors.Wrapf(autherrors.ErrSessionExpired, "authorization expired, retry login")
		default:
			return nil, fmt.Errorf("auth server returned unknown status %q", poll.Status)
		}
	}
}

func (c *Coordinator) pollOnce(ctx context.Context, pollURL string) (*pollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Brokers predating the expired status report a dead session as 404.
	if resp.StatusCode == http.StatusNotFound {
		return &pollResponse{Status: "expired"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll returned HTTP %d", resp.StatusCode)
	}

	var poll pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&poll); err != nil {
		return nil, fmt.Errorf("invalid poll response: %w", err)
	}
	return &poll, nil
}
