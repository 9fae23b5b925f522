// Package coordinator drives a login attempt from the client side. It
// picks the hosted-broker or local flow from its configuration, opens
// the user's browser, and converges both flows on the same Credential.
package coordinator

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skratchdot/open-golang/open"

	autherrors "github.com/stitchd/go-auth-broker/internal/errors"
	"github.com/stitchd/go-auth-broker/localserver"
	"github.com/stitchd/go-auth-broker/provider"
)

// Phase is the observable state of a login attempt. Once a terminal
// phase is reached the coordinator never leaves it; a new attempt needs
// a new Coordinator.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAuthorization
	PhaseCompleted
	PhaseFailed
	PhaseTimedOut
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingAuthorization:
		return "awaiting_authorization"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseTimedOut:
		return "timed_out"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
	defaultLocalWait    = 120 * time.Second

	// maxTransportFailures bounds how many consecutive poll transport
	// errors are tolerated before the attempt is abandoned.
	maxTransportFailures = 5
)

type Options struct {
	// BrokerURL selects the hosted flow. Empty selects the local flow,
	// in which case Provider must carry the locally-held secret.
	BrokerURL string
	Provider  provider.Config

	ListenPort   int
	PollInterval time.Duration
	PollTimeout  time.Duration
	LocalWait    time.Duration

	// OpenBrowser launches the system browser. Defaults to open.Run; a
	// launch failure is not fatal since the URL is always logged for
	// manual use.
	OpenBrowser func(url string) error
	HTTPClient  *http.Client
	Logger      *zerolog.Logger
}

type Coordinator struct {
	opts  Options
	phase atomic.Int32
}

func New(opts Options) (*Coordinator, error) {
	if opts.ListenPort == 0 {
		opts.ListenPort = localserver.DefaultPort
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.LocalWait <= 0 {
		opts.LocalWait = defaultLocalWait
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = open.Run
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = &log.Logger
	}

	if opts.BrokerURL == "" {
		if err := opts.Provider.Validate(); err != nil {
			return nil, err
		}
		if opts.Provider.ClientSecret == "" {
			return nil, autherrors.Wrapf(autherrors.ErrConfig, "local flow requires a client secret")
		}
	}

	return &Coordinator{opts: opts}, nil
}

func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// Login runs the full flow and returns the finished credential. It may
// be called once per Coordinator; cancelling ctx aborts immediately and
// leaves any hosted session to die by its own TTL.
func (c *Coordinator) Login(ctx context.Context) (*provider.Credential, error) {
	if !c.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseAwaitingAuthorization)) {
		return nil, errors.New("login already started on this coordinator")
	}

	var (
		cred *provider.Credential
		err  error
	)
	if c.opts.BrokerURL == "" {
		cred, err = c.localLogin(ctx)
	} else {
		cred, err = c.hostedLogin(ctx)
	}

	c.phase.Store(int32(terminalPhase(err)))
	return cred, err
}

func terminalPhase(err error) Phase {
	switch {
	case err == nil:
		return PhaseCompleted
	case errors.Is(err, autherrors.ErrTimeout):
		return PhaseTimedOut
	case errors.Is(err, autherrors.ErrCancelled) || errors.Is(err, context.Canceled):
		return PhaseCancelled
	default:
		return PhaseFailed
	}
}

// openBrowser launches the authorize URL and logs it so the user can
// open it by hand when the launch fails or goes to the wrong place.
func (c *Coordinator) openBrowser(url string) {
	c.opts.Logger.Info().Str("url", url).Msg("opening browser for authorization")
	if err := c.opts.OpenBrowser(url); err != nil {
		c.opts.Logger.Warn().Err(err).Msg("could not open browser, visit the logged URL manually")
	}
}
