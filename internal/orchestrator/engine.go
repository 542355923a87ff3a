package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/metrics"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerclient"
)

// StatusPublisher receives a snapshot of state after every persisted
// transition. Implemented by wshub.Hub; nil-safe so tests and
// non-interactive runs can omit it.
type StatusPublisher interface {
	Publish(state jobstate.JobState)
}

// Engine runs jobs against a Graph, persisting every transition through
// store and, when set, pushing each snapshot to a live StatusPublisher.
// One Engine is shared across all concurrent runs: RunJob holds no
// state beyond its own stack, matching the "no global lock" concurrency
// model in spec.md §4.4/§5.
type Engine struct {
	Graph   *Graph
	Store   *statestore.Store
	Publish StatusPublisher
	Logger  *zap.Logger
}

// NewEngine constructs an Engine. publisher may be nil.
func NewEngine(graph *Graph, store *statestore.Store, publisher StatusPublisher, logger *zap.Logger) *Engine {
	return &Engine{Graph: graph, Store: store, Publish: publisher, Logger: logger.Named("orchestrator")}
}

// RunJob executes the pipeline algorithm in spec.md §4.4 exactly:
// persist the initial state, walk nodes via Successor until End or a
// terminal failure, persisting after every step. It is meant to be
// launched in its own goroutine by the ingress listener or the HTTP
// submit handler: one call per job id, never called twice for the
// same job id concurrently (I2/I3 are upheld by that single-writer
// discipline, not by any lock in this type).
func (e *Engine) RunJob(ctx context.Context, initial jobstate.JobState) {
	state := initial

	if err := e.Store.Persist(ctx, state); err != nil {
		e.Logger.Error("failed to persist initial state", zap.String("job_id", state.JobID), zap.Error(err))
		return
	}
	e.publish(state)

	node := e.Graph.Entry
	for node != End {
		n, ok := e.Graph.Nodes[node]
		if !ok {
			e.Logger.Error("unknown node in graph", zap.String("job_id", state.JobID), zap.String("node", node))
			state = state.FailOrchestrator(node, "unknown node in pipeline graph", time.Now().UTC())
			e.persistTerminal(ctx, state)
			return
		}

		started := time.Now()
		result, err := n.Run(ctx, state)
		metrics.NodeDuration.WithLabelValues(node).Observe(time.Since(started).Seconds())

		if err != nil {
			state = e.fail(state, node, err)
			e.persistTerminal(ctx, state)
			return
		}

		state = result
		if err := e.Store.Persist(ctx, state); err != nil {
			e.Logger.Error("failed to persist state", zap.String("job_id", state.JobID), zap.String("node", node), zap.Error(err))
			return
		}
		e.publish(state)

		if state.Status.IsTerminal() {
			e.recordTerminal(state)
			return
		}

		node = Successor(node, state)
	}

	e.recordTerminal(state)
}

// fail converts a WorkerTimeout or TransportError raised by Invoke into
// the orchestrator-detected failure form of JobState (step =
// "failed_at_<node>"), per spec.md §4.4's catch clause.
func (e *Engine) fail(state jobstate.JobState, node string, err error) jobstate.JobState {
	now := time.Now().UTC()

	var timeoutErr *workerclient.TimeoutError
	if errors.As(err, &timeoutErr) {
		metrics.WorkerTimeoutsTotal.WithLabelValues(timeoutErr.WorkerName).Inc()
	}

	e.Logger.Warn("node failed",
		zap.String("job_id", state.JobID),
		zap.String("node", node),
		zap.Error(err),
	)
	return state.FailOrchestrator(node, err.Error(), now)
}

func (e *Engine) persistTerminal(ctx context.Context, state jobstate.JobState) {
	if err := e.Store.Persist(ctx, state); err != nil {
		e.Logger.Error("failed to persist terminal state", zap.String("job_id", state.JobID), zap.Error(err))
	}
	e.publish(state)
	e.recordTerminal(state)
}

func (e *Engine) recordTerminal(state jobstate.JobState) {
	if !state.Status.IsTerminal() {
		return
	}
	metrics.JobsTotal.WithLabelValues(string(state.Status)).Inc()
}

func (e *Engine) publish(state jobstate.JobState) {
	if e.Publish == nil {
		return
	}
	e.Publish.Publish(state)
}
