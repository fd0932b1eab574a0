package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candycheck/internal/identifier"
	"candycheck/internal/reward"
)

func newTestStore() *Store {
	return NewStore(func(key string) *Session {
		ledger := reward.NewLedger(key, reward.DefaultParams(), nil, nil)
		return New(key, "test_persona", identifier.NewRegistry(), ledger)
	})
}

func TestStoreGetOrCreate(t *testing.T) {
	store := newTestStore()

	sess := store.GetOrCreate("alpha")
	require.NotNil(t, sess)
	assert.Equal(t, "alpha", sess.Key)
	assert.Equal(t, "test_persona", sess.Persona)
	assert.Equal(t, 1, store.Len())

	again := store.GetOrCreate("alpha")
	assert.Same(t, sess, again, "same key must return the same session")
	assert.Equal(t, 1, store.Len())
}

func TestStoreGetOrCreateEmptyKeyGeneratesUUID(t *testing.T) {
	store := newTestStore()

	a := store.GetOrCreate("")
	b := store.GetOrCreate("")

	require.NotEmpty(t, a.Key)
	require.NotEmpty(t, b.Key)
	assert.NotEqual(t, a.Key, b.Key, "every empty-key call gets a fresh session")
	assert.Equal(t, 2, store.Len())
}

func TestStoreGet(t *testing.T) {
	store := newTestStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	created := store.GetOrCreate("here")
	got, ok := store.Get("here")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestStoreClearIsIdempotent(t *testing.T) {
	store := newTestStore()
	store.GetOrCreate("gone")

	assert.True(t, store.Clear("gone"))
	assert.False(t, store.Clear("gone"), "second clear is a no-op")
	assert.False(t, store.Clear("never-existed"))
	assert.Equal(t, 0, store.Len())
}

func TestStoreClearDropsState(t *testing.T) {
	store := newTestStore()

	sess := store.GetOrCreate("reset-me")
	err := sess.Update(func(st *State) error {
		_, err := st.Ledger.OnCheck(2, 0, 0)
		return err
	})
	require.NoError(t, err)

	store.Clear("reset-me")
	fresh := store.GetOrCreate("reset-me")
	assert.NotSame(t, sess, fresh)

	var locked int
	require.NoError(t, fresh.Update(func(st *State) error {
		locked = st.Ledger.Locked()
		return nil
	}))
	assert.Equal(t, 0, locked, "cleared session starts from zero")
}

func TestStoreKeysSorted(t *testing.T) {
	store := newTestStore()
	for _, k := range []string{"zeta", "alpha", "mid"} {
		store.GetOrCreate(k)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, store.Keys())
}

func TestStoreConcurrentGetOrCreate(t *testing.T) {
	store := newTestStore()

	const goroutines = 32
	var wg sync.WaitGroup
	sessions := make([]*Session, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half hammer one shared key, half create their own.
			if i%2 == 0 {
				sessions[i] = store.GetOrCreate("shared")
			} else {
				sessions[i] = store.GetOrCreate(fmt.Sprintf("own-%d", i))
			}
		}(i)
	}
	wg.Wait()

	var shared *Session
	for i := 0; i < goroutines; i += 2 {
		if shared == nil {
			shared = sessions[i]
		}
		assert.Same(t, shared, sessions[i], "shared key must resolve to one session")
	}
	assert.Equal(t, 1+goroutines/2, store.Len())
}

func TestSessionUpdateSerializesAndStampsActivity(t *testing.T) {
	store := newTestStore()
	sess := store.GetOrCreate("busy")

	before := sess.LastActive()
	time.Sleep(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sess.Update(func(st *State) error {
				st.QueryCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count uint64
	require.NoError(t, sess.Update(func(st *State) error {
		count = st.QueryCount
		return nil
	}))
	assert.Equal(t, uint64(17), count)
	assert.True(t, sess.LastActive().After(before))
}
