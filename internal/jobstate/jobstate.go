// Package jobstate defines JobState, the single mutable record that is
// carried through the ingestion pipeline and persisted after every
// transition. It is the typed replacement for the loose maps used
// elsewhere in systems of this shape: the open Metadata field keeps
// the merge-friendly behaviour callers rely on while the rest of the
// shape is compile-checked.
package jobstate

import (
	"errors"
	"fmt"
	"time"
)

// Status represents the current execution state of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// RoutedStatus builds the "routed_to_<branch>" status stamped by the
// router node once a branch has been selected.
func RoutedStatus(branch Branch) Status {
	return Status("routed_to_" + string(branch))
}

// IsTerminal reports whether s is success or failed: no further writes
// are permitted to persistence after a terminal write (invariant I3).
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Branch identifies one of the three per-content-type sub-pipelines.
type Branch string

const (
	BranchNone  Branch = ""
	BranchImage Branch = "image_branch"
	BranchVideo Branch = "video_branch"
	BranchPDF   Branch = "pdf_branch"
)

// ContentType is an opaque MIME string. Validation of the allowed set is
// the validation worker's responsibility, not this package's.
type ContentType string

const (
	ContentTypePDF = "application/pdf"
)

// JobState is the single source of truth for one job as it moves
// through the pipeline. Fields marked immutable are set once at
// submission and never touched again by the orchestrator core.
type JobState struct {
	// Immutable after submission.
	JobID          string      `json:"job_id"`
	FilePath       string      `json:"file_path"`
	ContentType    ContentType `json:"content_type"`
	ChecksumSHA256 string      `json:"checksum_sha256"`
	SubmittedBy    string      `json:"submitted_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`

	// Mutable: written only by the orchestrator run that owns this job.
	Status    Status    `json:"status"`
	Step      string    `json:"step"`
	Branch    Branch    `json:"branch"`
	UpdatedAt time.Time `json:"updated_at"`

	// Metadata accumulates worker results. Every worker merges under a
	// distinct top-level key and never deletes a sibling's key (I5).
	Metadata map[string]any `json:"metadata"`
}

// New constructs the initial JobState for a freshly submitted job.
// Status is "queued" and step is "queued", matching the execution
// algorithm's starting state.
func New(jobID, filePath string, contentType ContentType, checksum, submittedBy string, now time.Time) JobState {
	return JobState{
		JobID:          jobID,
		FilePath:       filePath,
		ContentType:    contentType,
		ChecksumSHA256: checksum,
		SubmittedBy:    submittedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         StatusQueued,
		Step:           "queued",
		Branch:         BranchNone,
		Metadata:       map[string]any{},
	}
}

// Clone returns a copy of s whose Metadata map is copied one level deep:
// adding, replacing or deleting a top-level key on the copy leaves s
// untouched, but nested maps and slices stored as values are shared
// between s and the copy.
func (s JobState) Clone() JobState {
	cp := s
	cp.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}

// MergeMetadata writes value under key without touching any other key,
// preserving invariant I5. It stamps UpdatedAt to now.
func (s JobState) MergeMetadata(key string, value any, now time.Time) JobState {
	cp := s.Clone()
	if cp.Metadata == nil {
		cp.Metadata = map[string]any{}
	}
	cp.Metadata[key] = value
	cp.UpdatedAt = now
	return cp
}

// AppendError pushes a diagnostic string onto metadata.errors, creating
// the slice if absent. Used whenever a node fails (§7 propagation policy).
func (s JobState) AppendError(msg string, now time.Time) JobState {
	cp := s.Clone()
	if cp.Metadata == nil {
		cp.Metadata = map[string]any{}
	}
	existing, _ := cp.Metadata["errors"].([]any)
	cp.Metadata["errors"] = append(existing, msg)
	cp.UpdatedAt = now
	return cp
}

// FailOrchestrator transitions s into a terminal failed state following
// the "step = failed_at_<node>" convention the execution algorithm uses
// for infrastructure-level failures (WorkerTimeout, TransportError)
// that the orchestrator itself detects around a node invocation.
func (s JobState) FailOrchestrator(node, reason string, now time.Time) JobState {
	cp := s.AppendError(reason, now)
	cp.Status = StatusFailed
	cp.Step = fmt.Sprintf("failed_at_%s", node)
	cp.UpdatedAt = now
	return cp
}

// FailWorker transitions s into a terminal failed state following the
// "step = <node>_failed" convention a worker uses when it rejects a job
// for business reasons (e.g. validation policy), as opposed to an
// infrastructure failure. See FailOrchestrator for the other form.
func (s JobState) FailWorker(node, reason string, now time.Time) JobState {
	cp := s.AppendError(reason, now)
	cp.Status = StatusFailed
	cp.Step = fmt.Sprintf("%s_failed", node)
	cp.UpdatedAt = now
	return cp
}

// ErrDuplicateJob names the duplicate-job_id condition (invariant I1).
// Submission does not return it: ingress.Submitter.Submit reports a
// duplicate as created=false with a nil error, which the HTTP handler
// turns into 409 Conflict.
var ErrDuplicateJob = errors.New("jobstate: duplicate job id")

// ValidateChecksumShape reports whether c looks like a 64-hex SHA-256
// digest. It does not verify the digest matches any content.
func ValidateChecksumShape(c string) bool {
	if len(c) != 64 {
		return false
	}
	for _, r := range c {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
