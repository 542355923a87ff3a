// Package workerclient implements the generic request/callback RPC used
// to invoke every remote worker. A single concrete Client type,
// parameterized by four configuration strings, replaces the
// base-class-and-inheritance shape a dynamically typed version of this
// system would use: composition over inheritance.
package workerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

// TimeoutError is returned by Invoke when no matching callback arrives
// within the configured timeout.
type TimeoutError struct {
	WorkerName string
	JobID      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workerclient: %s timed out waiting for callback for job %s", e.WorkerName, e.JobID)
}

// TransportError wraps a broker-level failure encountered during
// Invoke (publish or subscribe).
type TransportError struct {
	WorkerName string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("workerclient: %s transport error: %v", e.WorkerName, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is a generic caller that publishes a task on RequestChannel and
// blocks on CallbackChannel for the reply correlated by job_id. The
// zero value is not usable: build with New.
type Client struct {
	WorkerName      string
	TaskName        string
	RequestChannel  string
	CallbackChannel string

	broker broker.Broker
}

// New constructs a Client bound to br. workerName is the diagnostic tag
// carried by TimeoutError and TransportError; taskName is stored on the
// Client but is not included in any error. request/callback are the
// channel names this client publishes to and listens on respectively.
func New(br broker.Broker, workerName, taskName, requestChannel, callbackChannel string) *Client {
	return &Client{
		WorkerName:      workerName,
		TaskName:        taskName,
		RequestChannel:  requestChannel,
		CallbackChannel: callbackChannel,
		broker:          br,
	}
}

// callbackEnvelope is the wire shape expected on CallbackChannel.
type callbackEnvelope struct {
	JobID  string           `json:"job_id"`
	Result jobstate.JobState `json:"result"`
}

// Invoke publishes state as a task and blocks until the correlated
// reply arrives, timeout elapses, or ctx is cancelled. It subscribes to
// CallbackChannel before publishing to avoid a lost-reply race, and
// always tears the subscription down before returning.
//
// Messages on CallbackChannel whose job_id does not match state.JobID
// are discarded silently: the channel is shared across all jobs this
// worker type processes. Malformed messages are likewise skipped; they
// never cause Invoke to return early, only to keep waiting until
// timeout.
func (c *Client) Invoke(ctx context.Context, state jobstate.JobState, timeout time.Duration) (jobstate.JobState, error) {
	sub, err := c.broker.Subscribe(ctx, c.CallbackChannel)
	if err != nil {
		return jobstate.JobState{}, &TransportError{WorkerName: c.WorkerName, Err: err}
	}
	defer sub.Close()

	payload, err := json.Marshal(state)
	if err != nil {
		return jobstate.JobState{}, &TransportError{WorkerName: c.WorkerName, Err: err}
	}

	if err := c.broker.Publish(ctx, c.RequestChannel, payload); err != nil {
		return jobstate.JobState{}, &TransportError{WorkerName: c.WorkerName, Err: err}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return jobstate.JobState{}, &TransportError{WorkerName: c.WorkerName, Err: ctx.Err()}

		case <-deadline.C:
			return jobstate.JobState{}, &TimeoutError{WorkerName: c.WorkerName, JobID: state.JobID}

		case raw, ok := <-sub.Messages():
			if !ok {
				// Subscription died (connection drop) before a reply
				// arrived or timeout fired: treat as transport failure.
				return jobstate.JobState{}, &TransportError{
					WorkerName: c.WorkerName,
					Err:        broker.ErrClosed,
				}
			}

			var cb callbackEnvelope
			if err := json.Unmarshal(raw, &cb); err != nil {
				// MalformedEnvelope: skip silently, keep waiting.
				continue
			}
			if cb.JobID != state.JobID {
				// Reply for a different job sharing this callback
				// channel: discard and keep waiting.
				continue
			}
			return cb.Result, nil
		}
	}
}
