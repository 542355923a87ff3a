package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

// fakeKV is an in-memory KV double, used so these tests exercise the
// JSON (de)serialization and key-naming convention in this package
// without depending on either real backend.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) CreateIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

func (f *fakeKV) Close() error { return nil }

func TestPersistAndLoadRoundTrip(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()

	now := time.Now().UTC()
	state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "abc", "alice", now)

	require.NoError(t, store.Persist(ctx, state))

	loaded, err := store.Load(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, state.JobID, loaded.JobID)
	assert.Equal(t, state.Status, loaded.Status)
	assert.Equal(t, state.ContentType, loaded.ContentType)
}

func TestLoadMissingReturnsErrNotFound(t *testing.T) {
	store := New(newFakeKV())
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInitialOnlySucceedsOnce(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()

	now := time.Now().UTC()
	state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "abc", "", now)

	created, err := store.CreateInitial(ctx, state)
	require.NoError(t, err)
	assert.True(t, created)

	otherState := jobstate.New("job1", "/tmp/b.pdf", jobstate.ContentTypePDF, "def", "", now)
	created, err = store.CreateInitial(ctx, otherState)
	require.NoError(t, err)
	assert.False(t, created)

	loaded, err := store.Load(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.pdf", loaded.FilePath, "losing writer must not overwrite")
}

func TestCreateInitialConcurrentRaceHasExactlyOneWinner(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()
	now := time.Now().UTC()

	const attempts = 20
	var wg sync.WaitGroup
	wins := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state := jobstate.New("racey-job", "/tmp/race.pdf", jobstate.ContentTypePDF, "abc", "", now)
			created, err := store.CreateInitial(ctx, state)
			require.NoError(t, err)
			wins[i] = created
		}(i)
	}
	wg.Wait()

	winCount := 0
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	assert.Equal(t, 1, winCount, "exactly one concurrent CreateInitial call must win")
}
