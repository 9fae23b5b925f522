package sessionrepo

import (
	"time"

	"github.com/stitchd/go-auth-broker/provider"
)

// State is the lifecycle state of an authorization session. Transitions
// are monotonic: once a session is completed or failed it never changes
// again.
type State int

const (
	StatePending State = iota
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record tracks one in-progress authorization attempt. Nonce is the
// CSRF value embedded in the provider state parameter; the callback is
// matched to its session through it.
type Record struct {
	ID        string
	Nonce     string
	CreatedAt time.Time
	ExpiresAt time.Time
	State     State

	// Set when State == StateCompleted
	Credential *provider.Credential

	// Set when State == StateFailed. FailureError is already sanitized
	// for end users.
	FailureKind  string
	FailureError string
}

func (r Record) expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// record is the stored form; exchanging marks a callback that has
// claimed the session for a token exchange but not yet resolved it.
type record struct {
	Record
	exchanging bool
}
