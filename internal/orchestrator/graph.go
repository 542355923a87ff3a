package orchestrator

import (
	"time"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerclient"
)

// Graph is the static pipeline graph: a single entry node, a single
// sink (End), and the node registry keyed by name. It is acyclic by
// construction: Successor below only ever advances forward.
type Graph struct {
	Entry string
	Nodes map[string]Node
}

// NewGraph wires the node table from spec.md §4.4 against the worker
// clients and route node supplied by the caller (typically
// cmd/orchestrator's main, which owns the broker connection).
func NewGraph(nodes map[string]Node) *Graph {
	return &Graph{Entry: NodeValidateFile, Nodes: nodes}
}

// NewDefaultGraph builds the graph exactly as spec.md §4.4 draws it.
// clients supplies one *workerclient.Client per worker-bound node name
// (several node names may point at the same Client value when they
// share a channel pair, e.g. summarize_document / analyze_image_with_ai
// / generate_video_summary all sharing the ai_queue client); timeouts
// supplies the per-node invocation deadline. strictRouting is forwarded
// to the route node (see NewRouteNode).
func NewDefaultGraph(clients map[string]*workerclient.Client, timeouts map[string]time.Duration, strictRouting bool) *Graph {
	nodes := make(map[string]Node, len(clients)+1)
	for name, client := range clients {
		nodes[name] = NewWorkerNode(name, client, timeouts[name])
	}
	nodes[NodeRouteWorkflow] = NewRouteNode(strictRouting)
	return NewGraph(nodes)
}

// Successor computes the next node name given the node just executed
// and the state it produced, encoding the edge table in spec.md §4.4.
// It returns End once a branch's final node has run, or once state has
// reached a failed terminal status (failure short-circuits every
// remaining edge, per the "Failure semantics" note in §4.4).
func Successor(node string, state jobstate.JobState) string {
	if state.Status == jobstate.StatusFailed {
		return End
	}

	switch node {
	case NodeValidateFile:
		return NodeExtractMeta
	case NodeExtractMeta:
		return NodeRouteWorkflow
	case NodeRouteWorkflow:
		switch state.Branch {
		case jobstate.BranchImage:
			return NodeThumbnails
		case jobstate.BranchVideo:
			return NodeExtractAudio
		case jobstate.BranchPDF:
			return NodeExtractText
		default:
			return End
		}
	case NodeThumbnails:
		return NodeAnalyzeImage
	case NodeAnalyzeImage:
		return End
	case NodeExtractAudio:
		return NodeTranscribe
	case NodeTranscribe:
		return NodeVideoSummary
	case NodeVideoSummary:
		return End
	case NodeExtractText:
		return NodeSummarize
	case NodeSummarize:
		return End
	default:
		return End
	}
}
