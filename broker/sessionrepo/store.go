package sessionrepo

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stitchd/go-auth-broker/internal/utils"
	"github.com/stitchd/go-auth-broker/provider"
)

var (
	// ErrNotFound is returned when a session is absent or past its TTL.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyResolved is returned when a transition is attempted on a
	// session that has already completed, failed, or been claimed for an
	// exchange. Duplicate callbacks rely on this for idempotency.
	ErrAlreadyResolved = errors.New("session already resolved")
)

const (
	shardCount = 16
	// tokenBytes gives 256 bits of entropy for session ids and nonces.
	tokenBytes = 32
)

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

type nonceShard struct {
	mu  sync.RWMutex
	ids map[string]string // nonce -> session id
}

// Store is a concurrent session store with TTL expiry. Records are
// sharded so the periodic sweep never holds more than one shard lock at
// a time, and unrelated sessions never contend on a common lock.
type Store struct {
	shards [shardCount]*shard
	nonces [shardCount]*nonceShard
}

func New() *Store {
	s := &Store{}
	for i := 0; i < shardCount; i++ {
		s.shards[i] = &shard{records: make(map[string]*record)}
		s.nonces[i] = &nonceShard{ids: make(map[string]string)}
	}
	return s
}

// Create allocates a fresh session in the pending state with a random
// unguessable id and CSRF nonce.
func (s *Store) Create(ttl time.Duration) (Record, error) {
	if ttl <= 0 {
		return Record{}, errors.New("ttl must be positive")
	}

	now := time.Now()
	rec := &record{
		Record: Record{
			ID:        utils.RandomToken(tokenBytes),
			Nonce:     utils.RandomToken(tokenBytes),
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
			State:     StatePending,
		},
	}

	sh := s.shardFor(rec.ID)
	sh.mu.Lock()
	sh.records[rec.ID] = rec
	sh.mu.Unlock()

	ns := s.nonceShardFor(rec.Nonce)
	ns.mu.Lock()
	ns.ids[rec.Nonce] = rec.ID
	ns.mu.Unlock()

	return rec.Record, nil
}

// Get returns a copy of the session record. Expiry is checked lazily on
// every access: a record past its TTL is absent even if the sweep has
// not removed it yet.
func (s *Store) Get(id string) (Record, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[id]
	if !ok || rec.expired(time.Now()) {
		return Record{}, false
	}
	return rec.Record, true
}

// GetByNonce looks up the live session bound to a CSRF nonce. This is
// the only lookup the callback handler performs; a nonce that matches
// no live session is indistinguishable from one that never existed.
func (s *Store) GetByNonce(nonce string) (Record, bool) {
	ns := s.nonceShardFor(nonce)
	ns.mu.RLock()
	id, ok := ns.ids[nonce]
	ns.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return s.Get(id)
}

// Begin claims a pending session for a token exchange. Exactly one of
// any number of concurrent callers succeeds; the rest observe
// ErrAlreadyResolved and must not exchange.
func (s *Store) Begin(id string) error {
	return s.mutatePending(id, func(rec *record) {
		rec.exchanging = true
	}, true)
}

// Complete transitions a pending session to completed with the
// exchanged credential.
func (s *Store) Complete(id string, cred *provider.Credential) error {
	return s.mutatePending(id, func(rec *record) {
		rec.State = StateCompleted
		rec.Credential = cred
	}, false)
}

// Fail transitions a pending session to failed. msg must already be
// sanitized for delivery to the polling client.
func (s *Store) Fail(id string, kind, msg string) error {
	return s.mutatePending(id, func(rec *record) {
		rec.State = StateFailed
		rec.FailureKind = kind
		rec.FailureError = msg
	}, false)
}

// mutatePending is the compare-and-set at the heart of the store: the
// mutation is applied only while the record is still pending, under the
// shard lock. failIfClaimed additionally treats a claimed-but-pending
// record as resolved, which is what serializes duplicate callbacks.
func (s *Store) mutatePending(id string, apply func(*record), failIfClaimed bool) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[id]
	if !ok || rec.expired(time.Now()) {
		return ErrNotFound
	}
	if rec.State != StatePending {
		return ErrAlreadyResolved
	}
	if failIfClaimed && rec.exchanging {
		return ErrAlreadyResolved
	}
	apply(rec)
	return nil
}

// Consume atomically reads and removes a resolved session, bounding the
// exposure window of a delivered credential to a single poll. Pending
// sessions are left untouched and reported as absent.
func (s *Store) Consume(id string) (Record, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	rec, ok := sh.records[id]
	if !ok || rec.expired(time.Now()) || rec.State == StatePending {
		sh.mu.Unlock()
		return Record{}, false
	}
	delete(sh.records, id)
	sh.mu.Unlock()

	s.removeNonce(rec.Nonce)
	return rec.Record, true
}

// Sweep removes every record past its TTL and returns how many were
// removed. Each shard is locked independently, so a pass never blocks
// request handling for longer than one shard scan.
func (s *Store) Sweep() int {
	now := time.Now()
	removed := 0

	for _, sh := range s.shards {
		var nonces []string
		sh.mu.Lock()
		for id, rec := range sh.records {
			if rec.expired(now) {
				delete(sh.records, id)
				nonces = append(nonces, rec.Nonce)
			}
		}
		sh.mu.Unlock()

		for _, nonce := range nonces {
			s.removeNonce(nonce)
		}
		removed += len(nonces)
	}
	return removed
}

// Sweeper runs Sweep on a fixed interval until ctx is cancelled. Run it
// in its own goroutine alongside the broker.
func (s *Store) Sweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired auth sessions")
			}
		}
	}
}

func (s *Store) removeNonce(nonce string) {
	ns := s.nonceShardFor(nonce)
	ns.mu.Lock()
	delete(ns.ids, nonce)
	ns.mu.Unlock()
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[shardIndex(key)]
}

func (s *Store) nonceShardFor(key string) *nonceShard {
	return s.nonces[shardIndex(key)]
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
