package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stitchd/go-auth-broker/broker"
	"github.com/stitchd/go-auth-broker/broker/sessionrepo"
	"github.com/stitchd/go-auth-broker/internal/config"
	"github.com/stitchd/go-auth-broker/provider"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	providerConfig, err := buildProviderConfig(c)
	if err != nil {
		return err
	}
	exchanger, err := provider.NewExchanger(providerConfig)
	if err != nil {
		return err
	}

	sessions := sessionrepo.New()
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sessions.Sweeper(sweeperCtx, c.GetSweepInterval())

	handler, err := broker.New(c, sessions, exchanger)
	if err != nil {
		return fmt.Errorf("broker.New: %w", err)
	}

	server := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

// buildProviderConfig prefers explicit endpoints and falls back to OIDC
// discovery when only an issuer is configured.
func buildProviderConfig(c config.Config) (provider.Config, error) {
	if issuer := c.GetProviderIssuer(); issuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return provider.Discover(ctx, issuer, c.GetProviderClientID(), c.GetProviderClientSecret(), c.GetProviderScopes())
	}

	cfg := provider.Config{
		AuthorizeEndpoint: c.GetProviderAuthorizeEndpoint(),
		TokenEndpoint:     c.GetProviderTokenEndpoint(),
		ClientID:          c.GetProviderClientID(),
		ClientSecret:      c.GetProviderClientSecret(),
		Scopes:            c.GetProviderScopes(),
	}
	return cfg, cfg.Validate()
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
