// ndl-login performs a one-shot OAuth login from the terminal and
// prints the resulting access token for the calling program to store.
// With -broker it uses a hosted auth server; without it, it runs the
// whole flow locally and needs the provider secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stitchd/go-auth-broker/coordinator"
	"github.com/stitchd/go-auth-broker/provider"
)

func main() {
	brokerURL := flag.String("broker", "", "hosted auth server URL (empty runs the local flow)")
	clientID := flag.String("client-id", "", "provider client id (local flow)")
	clientSecret := flag.String("client-secret", "", "provider client secret (local flow)")
	authorizeURL := flag.String("authorize-url", "", "provider authorize endpoint (local flow)")
	tokenURL := flag.String("token-url", "", "provider token endpoint (local flow)")
	scopes := flag.String("scopes", "", "comma-separated scopes (local flow)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall login deadline")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	coord, err := coordinator.New(coordinator.Options{
		BrokerURL: *brokerURL,
		Provider: provider.Config{
			AuthorizeEndpoint: *authorizeURL,
			TokenEndpoint:     *tokenURL,
			ClientID:          *clientID,
			ClientSecret:      *clientSecret,
			Scopes:            splitScopes(*scopes),
		},
		PollTimeout: *timeout,
		LocalWait:   *timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid login configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("waiting for authorization in the browser")
	cred, err := coord.Login(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("phase", coord.Phase().String()).Msg("login failed")
	}

	log.Info().Time("obtained_at", cred.ObtainedAt).Msg("login successful")

	// The token goes to stdout so the caller can capture it; everything
	// else is on stderr.
	fmt.Println(cred.AccessToken)
}

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
