// Package workerservice is the symmetric counterpart to workerclient: it
// is the skeleton every worker process runs. It subscribes to a request
// channel, runs a pure ProcessFunc over each incoming JobState, and
// publishes the result on a callback channel tagged with the
// originating job id. A panic inside ProcessFunc is converted into a
// failed JobState and still published, as is any failed state
// ProcessFunc returns: the service never silently drops a well-formed
// request (§4.3). Requests that are not valid JSON are logged and
// discarded.
package workerservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/metrics"
)

// ProcessFunc is the pure per-message transformation a worker performs.
// It must not mutate shared state between calls: workers are stateless
// between messages (§4.3).
type ProcessFunc func(ctx context.Context, state jobstate.JobState) jobstate.JobState

// Service wraps a broker.Broker, a ProcessFunc, and the channel/name
// configuration for one worker type.
type Service struct {
	WorkerName      string
	RequestChannel  string
	CallbackChannel string
	Process         ProcessFunc

	broker broker.Broker
	logger *zap.Logger
}

// New constructs a Service. logger is named after WorkerName so every
// log line this service emits is attributable to it.
func New(br broker.Broker, workerName, requestChannel, callbackChannel string, process ProcessFunc, logger *zap.Logger) *Service {
	return &Service{
		WorkerName:      workerName,
		RequestChannel:  requestChannel,
		CallbackChannel: callbackChannel,
		Process:         process,
		broker:          br,
		logger:          logger.Named(workerName),
	}
}

type callbackEnvelope struct {
	JobID  string          `json:"job_id"`
	Result jobstate.JobState `json:"result"`
}

// Run subscribes to RequestChannel and processes messages until ctx is
// cancelled or the subscription dies. Callers typically run this in its
// own goroutine and rely on ctx cancellation for shutdown.
func (s *Service) Run(ctx context.Context) error {
	sub, err := s.broker.Subscribe(ctx, s.RequestChannel)
	if err != nil {
		return fmt.Errorf("workerservice %s: subscribe %s: %w", s.WorkerName, s.RequestChannel, err)
	}
	defer sub.Close()

	s.logger.Info("worker listening", zap.String("request_channel", s.RequestChannel))

	for {
		select {
		case <-ctx.Done():
			return nil

		case raw, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("workerservice %s: subscription to %s closed", s.WorkerName, s.RequestChannel)
			}
			s.handle(ctx, raw)
		}
	}
}

func (s *Service) handle(ctx context.Context, raw []byte) {
	var state jobstate.JobState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding malformed request", zap.Error(err))
		return
	}

	result := s.runProcess(ctx, state)

	outcome := "success"
	if result.Status == jobstate.StatusFailed {
		outcome = "failed"
	}
	metrics.WorkerRequestsTotal.WithLabelValues(s.WorkerName, outcome).Inc()

	payload, err := json.Marshal(callbackEnvelope{JobID: state.JobID, Result: result})
	if err != nil {
		s.logger.Error("failed to marshal callback envelope", zap.String("job_id", state.JobID), zap.Error(err))
		return
	}

	if err := s.broker.Publish(ctx, s.CallbackChannel, payload); err != nil {
		s.logger.Error("failed to publish callback",
			zap.String("job_id", state.JobID),
			zap.String("callback_channel", s.CallbackChannel),
			zap.Error(err),
		)
	}
}

// runProcess invokes Process, converting any panic into a failed
// JobState instead of crashing the service.
func (s *Service) runProcess(ctx context.Context, state jobstate.JobState) (result jobstate.JobState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("worker panicked", zap.String("job_id", state.JobID), zap.Any("panic", r))
			result = state.FailWorker(s.WorkerName, fmt.Sprintf("panic: %v", r), time.Now().UTC())
		}
	}()
	return s.Process(ctx, state)
}
