// Package ingress is where a job enters the system: either through the
// command_queue broker subscription (JOB_CREATED events published by
// the rest of the upload pipeline) or through the HTTP POST /jobs
// handler in package api. Both paths fund into the same Submitter so
// the de-dup-by-job_id check-and-set in spec.md §4.5 has exactly one
// implementation.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/orchestrator"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
)

// CommandQueue is the broker channel the listener subscribes to.
const CommandQueue = "command_queue"

// IngestionJobRequest is the shape of both a JOB_CREATED event's fields
// (minus "event") and the POST /jobs request body: the two entry
// points submit the identical payload shape.
type IngestionJobRequest struct {
	JobID          string `json:"job_id"`
	FilePath       string `json:"file_path"`
	ContentType    string `json:"content_type"`
	ChecksumSHA256 string `json:"checksum_sha256"`
	SubmittedBy    string `json:"submitted_by,omitempty"`
}

// jobCreatedEvent is the full wire envelope published on CommandQueue.
type jobCreatedEvent struct {
	Event string `json:"event"`
	IngestionJobRequest
}

const eventJobCreated = "JOB_CREATED"

// Submitter builds the initial JobState for a request, persists it if
// (and only if) no state already exists for that job id, and launches
// one orchestrator run. It is safe to call concurrently for different
// job ids; for the same job id, CreateInitial's atomicity guarantees
// only one caller wins the race (invariant I1).
type Submitter struct {
	Store  *statestore.Store
	Engine *orchestrator.Engine
	Logger *zap.Logger
}

// NewSubmitter builds a Submitter.
func NewSubmitter(store *statestore.Store, engine *orchestrator.Engine, logger *zap.Logger) *Submitter {
	return &Submitter{Store: store, Engine: engine, Logger: logger.Named("ingress")}
}

// ErrInvalidRequest is returned when req fails basic shape validation
// before a JobState is even constructed.
var ErrInvalidRequest = errors.New("ingress: invalid ingestion job request")

// Submit constructs the initial JobState for req, attempts the
// check-and-set create, and: only if this call won the race: starts
// one orchestrator run in a new goroutine. It returns created=false
// without error when a state already exists for req.JobID, matching
// the "log and drop" de-dup behaviour in spec.md §4.5.
func (s *Submitter) Submit(ctx context.Context, req IngestionJobRequest) (created bool, err error) {
	if req.JobID == "" || req.FilePath == "" || req.ContentType == "" {
		return false, fmt.Errorf("%w: job_id, file_path and content_type are required", ErrInvalidRequest)
	}

	now := time.Now().UTC()
	initial := jobstate.New(req.JobID, req.FilePath, jobstate.ContentType(req.ContentType), req.ChecksumSHA256, req.SubmittedBy, now)

	created, err = s.Store.CreateInitial(ctx, initial)
	if err != nil {
		return false, fmt.Errorf("ingress: persist initial state for %s: %w", req.JobID, err)
	}
	if !created {
		s.Logger.Info("duplicate job id, dropping", zap.String("job_id", req.JobID))
		return false, nil
	}

	go s.Engine.RunJob(context.Background(), initial)
	return true, nil
}

// Listener subscribes to CommandQueue and submits each well-formed
// JOB_CREATED event it sees.
type Listener struct {
	broker    broker.Broker
	submitter *Submitter
	logger    *zap.Logger
}

// NewListener builds a Listener bound to br, handing every decoded
// event to submitter.
func NewListener(br broker.Broker, submitter *Submitter, logger *zap.Logger) *Listener {
	return &Listener{broker: br, submitter: submitter, logger: logger.Named("ingress_listener")}
}

// Run subscribes to CommandQueue and processes events until ctx is
// cancelled or the subscription dies.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.broker.Subscribe(ctx, CommandQueue)
	if err != nil {
		return fmt.Errorf("ingress: subscribe %s: %w", CommandQueue, err)
	}
	defer sub.Close()

	l.logger.Info("listening for JOB_CREATED events", zap.String("channel", CommandQueue))

	for {
		select {
		case <-ctx.Done():
			return nil

		case raw, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("ingress: subscription to %s closed", CommandQueue)
			}
			l.handle(ctx, raw)
		}
	}
}

func (l *Listener) handle(ctx context.Context, raw []byte) {
	var evt jobCreatedEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		l.logger.Warn("discarding malformed command_queue message", zap.Error(err))
		return
	}
	if evt.Event != eventJobCreated {
		l.logger.Warn("discarding unrecognised event", zap.String("event", evt.Event))
		return
	}

	if _, err := l.submitter.Submit(ctx, evt.IngestionJobRequest); err != nil {
		l.logger.Error("failed to submit job", zap.String("job_id", evt.JobID), zap.Error(err))
	}
}
