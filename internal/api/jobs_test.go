package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/ingress"
	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/orchestrator"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
)

// fakeKV is a minimal in-memory statestore.KV double, local to this
// package's tests so they don't depend on either real backend.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

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

// instantNode finishes a job on its first node, used so submit tests
// don't need a full graph wired up.
type instantNode struct{}

func (instantNode) Name() string { return orchestrator.NodeValidateFile }
func (instantNode) Run(_ context.Context, state jobstate.JobState) (jobstate.JobState, error) {
	cp := state.Clone()
	cp.Status = jobstate.StatusSuccess
	cp.Step = "validate_file_done"
	return cp, nil
}

func newTestRouter(t *testing.T) (http.Handler, *statestore.Store) {
	t.Helper()
	store := statestore.New(newFakeKV())
	graph := orchestrator.NewGraph(map[string]orchestrator.Node{
		orchestrator.NodeValidateFile: instantNode{},
	})
	engine := orchestrator.NewEngine(graph, store, nil, zap.NewNop())
	submitter := ingress.NewSubmitter(store, engine, zap.NewNop())

	router := NewRouter(RouterConfig{
		Submitter: submitter,
		Store:     store,
		Hub:       nil,
		Logger:    zap.NewNop(),
	})
	return router, store
}

func TestSubmitReturns202OnSuccess(t *testing.T) {
	router, store := newTestRouter(t)

	body, err := json.Marshal(ingress.IngestionJobRequest{
		JobID:          "job1",
		FilePath:       "/tmp/a.pdf",
		ContentType:    "application/pdf",
		ChecksumSHA256: "abc",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Data submitResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "job1", resp.Data.JobID)

	// The run is launched asynchronously; give it a moment to persist.
	assert.Eventually(t, func() bool {
		state, err := store.Load(context.Background(), "job1")
		return err == nil && state.Status.IsTerminal()
	}, time.Second, 5*time.Millisecond)
}

func TestSubmitReturns400OnMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	body, err := json.Marshal(map[string]string{"job_id": "job2"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitReturns409OnDuplicate(t *testing.T) {
	router, _ := newTestRouter(t)

	body, err := json.Marshal(ingress.IngestionJobRequest{
		JobID:          "job3",
		FilePath:       "/tmp/a.pdf",
		ContentType:    "application/pdf",
		ChecksumSHA256: "abc",
	})
	require.NoError(t, err)

	req1 := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusAccepted, w1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestGetByIDReturns404WhenMissing(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByIDReturnsPersistedState(t *testing.T) {
	router, store := newTestRouter(t)

	now := time.Now().UTC()
	state := jobstate.New("job4", "/tmp/a.pdf", jobstate.ContentTypePDF, "abc", "", now)
	require.NoError(t, store.Persist(context.Background(), state))

	req := httptest.NewRequest(http.MethodGet, "/jobs/job4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data jobstate.JobState `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "job4", resp.Data.JobID)
}

func TestStreamReturns404WhenHubNil(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job5/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
