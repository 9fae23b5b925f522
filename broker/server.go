package broker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/stitchd/go-auth-broker/broker/sessionrepo"
	"github.com/stitchd/go-auth-broker/internal/config"
	"github.com/stitchd/go-auth-broker/provider"
)

// Exchanger is the slice of provider.Exchanger the broker needs. The
// broker never sees the client secret directly; it lives inside the
// exchanger.
type Exchanger interface {
	AuthorizeURL(redirectURI, state string) string
	Exchange(ctx context.Context, code, redirectURI string) (*provider.Credential, error)
}

// Server mediates the authorization-code exchange for many concurrent
// clients: it creates sessions, receives the provider redirect, and
// hands the finished credential to the polling client exactly once.
type Server struct {
	env         string
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	sessions    *sessionrepo.Store
	exchanger   Exchanger
	redirectURI string
}

func New(cfg config.Config, sessions *sessionrepo.Store, exchanger Exchanger) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("[broker New] session store is required")
	}
	if exchanger == nil {
		return nil, fmt.Errorf("[broker New] exchanger is required")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      cfg,
		sessions:    sessions,
		exchanger:   exchanger,
		redirectURI: strings.TrimRight(cfg.GetPublicURL(), "/") + RouteAuthCallback,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
