// Package statestore persists the evolving jobstate.JobState, keyed by
// job id. It is a thin, typed layer over a generic KV interface so the
// orchestrator core never serializes JobState itself and two
// interchangeable backends (Redis, embedded bbolt) can share one code
// path for the JSON (de)serialization and key-naming convention.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

// ErrNotFound is returned by Load when no state exists for the job id.
var ErrNotFound = errors.New("statestore: not found")

// KV is the minimal key/value contract a persistence backend must
// provide. Both implementations in this repo (redisstore, boltstore)
// satisfy it directly against their native storage engine.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	CreateIfAbsent(ctx context.Context, key string, value []byte) (created bool, err error)
	Close() error
}

// Store persists JobState values keyed by "job_state:{job_id}".
type Store struct {
	kv KV
}

// New wraps a KV backend as a Store.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

func stateKey(jobID string) string {
	return fmt.Sprintf("job_state:%s", jobID)
}

// Persist writes the current snapshot of state. Per invariant I3, once a
// terminal status has been persisted, callers must not call Persist
// again with a non-terminal status for the same job id: the store
// itself does not enforce this (it would require a read-before-write on
// every call); the orchestrator engine is responsible for upholding it,
// matching the execution algorithm's single-writer-per-job-id guarantee.
func (s *Store) Persist(ctx context.Context, state jobstate.JobState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("statestore: marshal %s: %w", state.JobID, err)
	}
	return s.kv.Set(ctx, stateKey(state.JobID), data)
}

// Load retrieves the persisted state for jobID. Returns ErrNotFound if
// absent.
func (s *Store) Load(ctx context.Context, jobID string) (jobstate.JobState, error) {
	data, ok, err := s.kv.Get(ctx, stateKey(jobID))
	if err != nil {
		return jobstate.JobState{}, err
	}
	if !ok {
		return jobstate.JobState{}, ErrNotFound
	}
	var state jobstate.JobState
	if err := json.Unmarshal(data, &state); err != nil {
		return jobstate.JobState{}, fmt.Errorf("statestore: unmarshal %s: %w", jobID, err)
	}
	return state, nil
}

// CreateInitial atomically persists state only if no state already
// exists for state.JobID. created is false if a state already existed:
// callers (ingress listener, HTTP submit handler) use this to implement
// the de-dup-by-job_id check-and-set required by §9, instead of a
// racy Load-then-Persist.
func (s *Store) CreateInitial(ctx context.Context, state jobstate.JobState) (created bool, err error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("statestore: marshal %s: %w", state.JobID, err)
	}
	return s.kv.CreateIfAbsent(ctx, stateKey(state.JobID), data)
}

// Close releases the underlying backend's resources.
func (s *Store) Close() error {
	return s.kv.Close()
}
