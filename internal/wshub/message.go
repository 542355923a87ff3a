// Package wshub implements the live job-status push surface
// (GET /jobs/{job_id}/stream): a topic-based WebSocket broadcast hub
// where the orchestrator engine publishes a JobState snapshot after
// every persisted transition and each subscribed connection receives
// only the snapshots for the job id it asked for.
//
// Topic naming convention:
//
//	job:<job_id>: every persisted state transition for one job
package wshub

import "github.com/Sunzheini/AegisAI-sub000/internal/jobstate"

// MessageType identifies the kind of event carried by a Message. There
// is currently one kind; the field exists so the wire shape can grow
// without breaking existing clients.
type MessageType string

const (
	// MsgJobStatus carries a full JobState snapshot.
	MsgJobStatus MessageType = "job.status"
)

// Message is the envelope for every frame sent to a stream client.
type Message struct {
	Type    MessageType      `json:"type"`
	Topic   string           `json:"topic"`
	Payload jobstate.JobState `json:"payload"`
}

// JobTopic returns the hub topic name for jobID's status stream.
func JobTopic(jobID string) string {
	return "job:" + jobID
}
