package sessionrepo_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchd/go-auth-broker/broker/sessionrepo"
	"github.com/stitchd/go-auth-broker/provider"
)

func TestCreateAndGet(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.Nonce)
	assert.NotEqual(t, rec.ID, rec.Nonce)
	assert.Equal(t, sessionrepo.StatePending, rec.State)

	got, ok := store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, sessionrepo.StatePending, got.State)
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	store := sessionrepo.New()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		rec, err := store.Create(time.Minute)
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate session id generated")
		seen[rec.ID] = true
	}
}

func TestGetByNonce(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	got, ok := store.GetByNonce(rec.Nonce)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)

	_, ok = store.GetByNonce("no-such-nonce")
	assert.False(t, ok)
}

func TestLazyExpiry(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(10 * time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// Expired records are absent on every access path even though the
	// sweep has not run.
	_, ok := store.Get(rec.ID)
	assert.False(t, ok)

	_, ok = store.GetByNonce(rec.Nonce)
	assert.False(t, ok)

	err = store.Complete(rec.ID, &provider.Credential{AccessToken: "tok"})
	assert.ErrorIs(t, err, sessionrepo.ErrNotFound)

	_, ok = store.Consume(rec.ID)
	assert.False(t, ok)
}

func TestTransitionsAreMonotonic(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Complete(rec.ID, &provider.Credential{AccessToken: "tok_1"}))

	// Any further transition is a no-op reporting the settled state.
	err = store.Complete(rec.ID, &provider.Credential{AccessToken: "tok_2"})
	assert.ErrorIs(t, err, sessionrepo.ErrAlreadyResolved)
	err = store.Fail(rec.ID, "network", "boom")
	assert.ErrorIs(t, err, sessionrepo.ErrAlreadyResolved)
	err = store.Begin(rec.ID)
	assert.ErrorIs(t, err, sessionrepo.ErrAlreadyResolved)

	got, ok := store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, sessionrepo.StateCompleted, got.State)
	assert.Equal(t, "tok_1", got.Credential.AccessToken)
}

func TestFail(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Fail(rec.ID, "invalid_grant", "code rejected"))

	got, ok := store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, sessionrepo.StateFailed, got.State)
	assert.Equal(t, "invalid_grant", got.FailureKind)
	assert.Equal(t, "code rejected", got.FailureError)
	assert.Nil(t, got.Credential)
}

func TestBeginClaimsExactlyOnce(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	const callers = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Begin(rec.ID) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	// The claimed record is still pending and can be resolved by the
	// winner.
	got, ok := store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, sessionrepo.StatePending, got.State)
	require.NoError(t, store.Complete(rec.ID, &provider.Credential{AccessToken: "tok"}))
}

func TestConcurrentCompleteSingleWinner(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	const callers = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if store.Complete(rec.ID, &provider.Credential{AccessToken: "tok"}) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestConsume(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)

	// A pending session cannot be consumed.
	_, ok := store.Consume(rec.ID)
	assert.False(t, ok)
	_, ok = store.Get(rec.ID)
	assert.True(t, ok)

	require.NoError(t, store.Complete(rec.ID, &provider.Credential{AccessToken: "tok_1"}))

	got, ok := store.Consume(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "tok_1", got.Credential.AccessToken)

	// Consumption removes the record and its nonce binding.
	_, ok = store.Get(rec.ID)
	assert.False(t, ok)
	_, ok = store.GetByNonce(rec.Nonce)
	assert.False(t, ok)
	_, ok = store.Consume(rec.ID)
	assert.False(t, ok)
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	store := sessionrepo.New()

	rec, err := store.Create(time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Complete(rec.ID, &provider.Credential{AccessToken: "tok"}))

	const callers = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.Consume(rec.ID); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestSweep(t *testing.T) {
	store := sessionrepo.New()

	short, err := store.Create(10 * time.Millisecond)
	require.NoError(t, err)
	long, err := store.Create(time.Minute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	removed := store.Sweep()
	assert.Equal(t, 1, removed)

	_, ok := store.Get(short.ID)
	assert.False(t, ok)
	_, ok = store.GetByNonce(short.Nonce)
	assert.False(t, ok)

	_, ok = store.Get(long.ID)
	assert.True(t, ok)

	// Nothing left to remove.
	assert.Equal(t, 0, store.Sweep())
}

func TestCreateRejectsNonPositiveTTL(t *testing.T) {
	store := sessionrepo.New()

	_, err := store.Create(0)
	assert.Error(t, err)
	_, err = store.Create(-time.Second)
	assert.Error(t, err)
}
