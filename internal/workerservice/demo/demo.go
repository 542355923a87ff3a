// Package demo provides small, explicitly non-production ProcessFunc
// implementations for each worker channel named in SPEC_FULL.md §6's
// channel table. They exist only to drive the orchestrator's branching
// and failure handling end-to-end in tests and local runs: the real
// media processing bodies are out of scope for this repo (§1).
package demo

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

// ValidationConfig parameterizes the validation demo worker.
type ValidationConfig struct {
	AllowedContentTypes    []string
	EnableChecksumSentinel bool
}

// Validation returns the ProcessFunc for the validation worker. It
// rejects content types outside AllowedContentTypes and, when the
// sentinel is enabled, checksums ending in '0' (invariant I6): a
// dev-only rule preserved from the source system and gated behind a
// flag so operators can disable it in production.
func Validation(cfg ValidationConfig) func(ctx context.Context, state jobstate.JobState) jobstate.JobState {
	allowed := make(map[string]struct{}, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[ct] = struct{}{}
	}

	return func(_ context.Context, state jobstate.JobState) jobstate.JobState {
		now := time.Now().UTC()

		if _, ok := allowed[string(state.ContentType)]; !ok {
			return state.FailWorker("validate_file", "unsupported content type: "+string(state.ContentType), now)
		}

		if cfg.EnableChecksumSentinel && strings.HasSuffix(state.ChecksumSHA256, "0") {
			return state.FailWorker("validate_file", "checksum rejected by dev sentinel policy (ends in '0')", now)
		}

		cp := state.MergeMetadata("validation", "passed", now)
		cp.Step = "validate_file_done"
		return cp
	}
}

// Metadata is the ProcessFunc for the metadata-extraction worker.
// It stat's FilePath when present and falls back to a deterministic
// stand-in size derived from the path length, since the demo has no
// real file storage backend behind it.
func Metadata(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()

	size := int64(len(state.FilePath)) * 4096
	if info, err := os.Stat(state.FilePath); err == nil {
		size = info.Size()
	}

	cp := state.MergeMetadata("file_size", size, now)
	cp.Step = "extract_metadata_done"
	return cp
}

// ExtractText is the ProcessFunc for the PDF branch's text
// extraction worker.
func ExtractText(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("text_extraction", map[string]any{
		"characters": estimateSize(state) * 3,
	}, now)
	cp.Step = "extract_text_done"
	return cp
}

// Summarize is the ProcessFunc for the final node of the PDF
// branch. It marks the job successful: the pipeline sink for that
// branch.
func Summarize(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("summary", "auto-generated summary placeholder", now)
	cp.Status = jobstate.StatusSuccess
	cp.Step = "summarize_document"
	return cp
}

// Thumbnails is the ProcessFunc for the image branch's thumbnail
// generation worker.
func Thumbnails(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("thumbnails", []string{"thumb_small", "thumb_medium", "thumb_large"}, now)
	cp.Step = "generate_thumbnails_done"
	return cp
}

// AnalyzeImage is the ProcessFunc for the final node of the image
// branch. It marks the job successful: the pipeline sink for that
// branch.
func AnalyzeImage(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("ai_analysis", map[string]any{"labels": []string{"unclassified"}}, now)
	cp.Status = jobstate.StatusSuccess
	cp.Step = "analyze_image_with_ai"
	return cp
}

// ExtractAudio is the ProcessFunc for the video branch's audio
// extraction worker.
func ExtractAudio(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("audio_extraction", map[string]any{"track": "audio_0"}, now)
	cp.Step = "extract_audio_done"
	return cp
}

// Transcribe is the ProcessFunc for the video branch's
// transcription worker.
func Transcribe(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("transcription", "placeholder transcript", now)
	cp.Step = "transcribe_audio_done"
	return cp
}

// VideoSummary is the ProcessFunc for the final node of the video
// branch. It marks the job successful: the pipeline sink for that
// branch.
func VideoSummary(_ context.Context, state jobstate.JobState) jobstate.JobState {
	now := time.Now().UTC()
	cp := state.MergeMetadata("video_summary", "auto-generated video summary placeholder", now)
	cp.Status = jobstate.StatusSuccess
	cp.Step = "generate_video_summary"
	return cp
}

// AI is the ProcessFunc bound to the shared ai_queue channel
// (spec.md §6's "AI summarization" worker). Three pipeline nodes
// (summarize_document, analyze_image_with_ai, generate_video_summary)
// share that one channel pair, so the worker listening on it must
// determine which branch-final step to run from the state it receives
// rather than always running a single fixed behavior: otherwise
// deploying more than one AI-kind worker instance on the channel (an
// explicitly allowed deployment, per §4.3) would race distinct, wrong
// results onto the same job instead of redundant identical ones.
func AI(ctx context.Context, state jobstate.JobState) jobstate.JobState {
	switch state.Branch {
	case jobstate.BranchImage:
		return AnalyzeImage(ctx, state)
	case jobstate.BranchVideo:
		return VideoSummary(ctx, state)
	default:
		return Summarize(ctx, state)
	}
}

// MediaProcessing is the ProcessFunc bound to the shared
// media_processing_queue channel. It covers three steps across two
// branches: the image branch's only media step (thumbnails), and the
// video branch's two sequential steps (audio extraction, then
// transcription): distinguished by Step, since Branch alone does not
// determine which of the two video steps is next.
func MediaProcessing(ctx context.Context, state jobstate.JobState) jobstate.JobState {
	switch state.Branch {
	case jobstate.BranchImage:
		return Thumbnails(ctx, state)
	case jobstate.BranchVideo:
		if state.Step == NodeExtractAudioDone {
			return Transcribe(ctx, state)
		}
		return ExtractAudio(ctx, state)
	default:
		return state.FailWorker("media_processing", "media_processing worker received a job outside image/video branch: "+string(state.Branch), time.Now().UTC())
	}
}

// NodeExtractAudioDone is the Step value ExtractAudio stamps on
// success, used by MediaProcessing to tell "about to extract audio"
// apart from "ready to transcribe" on the shared channel.
const NodeExtractAudioDone = "extract_audio_done"

// estimateSize returns a deterministic pseudo file size used by demo
// workers that need a number to act on without a real storage backend.
func estimateSize(state jobstate.JobState) int64 {
	if v, ok := state.Metadata["file_size"].(float64); ok {
		return int64(v)
	}
	return int64(len(state.FilePath)) * 4096
}
