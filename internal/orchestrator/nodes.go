// Package orchestrator implements the branching pipeline executor: the
// static node/edge graph of spec.md §4.4, the routing rule, and the
// engine that walks a job from entry to END, persisting after every
// step and translating worker failures into a terminal JobState.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerclient"
)

// Node names. These double as JobState.Step values once a node
// completes successfully (with a "_done" suffix for worker nodes that
// are not branch terminals, per the demo workers in workerservice/demo).
const (
	NodeValidateFile   = "validate_file"
	NodeExtractMeta    = "extract_metadata"
	NodeRouteWorkflow  = "route_workflow"
	NodeThumbnails     = "generate_thumbnails"
	NodeAnalyzeImage   = "analyze_image_with_ai"
	NodeExtractAudio   = "extract_audio"
	NodeTranscribe     = "transcribe_audio"
	NodeVideoSummary   = "generate_video_summary"
	NodeExtractText    = "extract_text"
	NodeSummarize      = "summarize_document"

	// End is the sink every branch eventually reaches. It is never
	// present as a key in Graph.Nodes.
	End = "END"
)

// Node is one step of the pipeline graph: either a WorkerClient.invoke
// call or the internal routing function.
type Node interface {
	Name() string
	Run(ctx context.Context, state jobstate.JobState) (jobstate.JobState, error)
}

// workerNode invokes a remote worker through a workerclient.Client and
// enforces its per-node timeout.
type workerNode struct {
	name    string
	client  *workerclient.Client
	timeout time.Duration
}

// NewWorkerNode builds a Node bound to client, invoked with timeout.
// name is the step name stamped into metrics and, on failure, into
// JobState.Step via FailOrchestrator.
func NewWorkerNode(name string, client *workerclient.Client, timeout time.Duration) Node {
	return &workerNode{name: name, client: client, timeout: timeout}
}

func (n *workerNode) Name() string { return n.name }

func (n *workerNode) Run(ctx context.Context, state jobstate.JobState) (jobstate.JobState, error) {
	return n.client.Invoke(ctx, state, n.timeout)
}

// routeNode is the single in-process node: it never calls a worker, it
// only inspects and stamps state per the routing rule in spec.md §4.4.
type routeNode struct {
	strict bool
}

// NewRouteNode builds the routing node. When strict is true, a content
// type matching none of the known prefixes fails the job with
// "unrouteable_content_type" instead of the documented image_branch
// default (see SPEC_FULL.md §9, --strict-routing).
func NewRouteNode(strict bool) Node {
	return &routeNode{strict: strict}
}

func (n *routeNode) Name() string { return NodeRouteWorkflow }

func (n *routeNode) Run(_ context.Context, state jobstate.JobState) (jobstate.JobState, error) {
	now := time.Now().UTC()
	branch, ok := classify(state.ContentType)
	if !ok {
		if n.strict {
			return state.FailWorker(NodeRouteWorkflow, "unrouteable_content_type: "+string(state.ContentType), now), nil
		}
		branch = jobstate.BranchImage
	}

	cp := state.Clone()
	cp.Branch = branch
	cp.Status = jobstate.RoutedStatus(branch)
	cp.Step = NodeRouteWorkflow
	cp.UpdatedAt = now
	return cp, nil
}

// classify implements the routing rule exactly: image/* and video/*
// prefixes, an exact application/pdf match, everything else unrouted.
func classify(ct jobstate.ContentType) (jobstate.Branch, bool) {
	s := string(ct)
	switch {
	case strings.HasPrefix(s, "image/"):
		return jobstate.BranchImage, true
	case strings.HasPrefix(s, "video/"):
		return jobstate.BranchVideo, true
	case s == jobstate.ContentTypePDF:
		return jobstate.BranchPDF, true
	default:
		return jobstate.BranchNone, false
	}
}
