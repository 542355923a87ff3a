// Package config holds the pieces shared by both binaries: the
// envOrDefault flag-default pattern, zap logger construction, backend
// selection (redis vs bolt/localbus), and the static worker-channel
// table that maps a pipeline node to the request/callback channel pair
// and per-worker timeout it is invoked with.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
	"github.com/Sunzheini/AegisAI-sub000/internal/broker/localbus"
	"github.com/Sunzheini/AegisAI-sub000/internal/broker/redisbroker"
	"github.com/Sunzheini/AegisAI-sub000/internal/orchestrator"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore/boltstore"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore/redisstore"
)

// EnvOrDefault returns the value of the environment variable key, or
// defaultVal if it is unset or empty.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// BuildLogger constructs a zap.Logger at the given level
// ("debug"|"info"|"warn"|"error"), defaulting to info for any other
// value.
func BuildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// Backends bundles the pub/sub broker and the job-state store for a
// single process, selected together by --state-backend so "redis
// everywhere" and "bolt KV + local-bus pub/sub" are the two supported
// deployment modes (spec.md allows any KV/broker pairing; this repo's
// binaries only wire these two for operational simplicity).
type Backends struct {
	Broker broker.Broker
	Store  *statestore.Store
}

// BuildBackends constructs a Backends for backend ("redis" or "bolt").
// redisAddr and boltPath are only consulted for their respective
// backend.
func BuildBackends(backend, redisAddr, boltPath string) (*Backends, error) {
	switch backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return &Backends{
			Broker: redisbroker.NewFromClient(client),
			Store:  statestore.New(redisstore.New(client)),
		}, nil

	case "bolt":
		kv, err := boltstore.Open(boltPath)
		if err != nil {
			return nil, fmt.Errorf("config: open bolt store at %s: %w", boltPath, err)
		}
		return &Backends{
			Broker: localbus.New(),
			Store:  statestore.New(kv),
		}, nil

	default:
		return nil, fmt.Errorf("config: unknown state backend %q (want \"redis\" or \"bolt\")", backend)
	}
}

// Close releases the broker connection and store handle. The broker
// and store may share an underlying *redis.Client; closing both is
// still correct since redis.Client.Close is idempotent-safe for our
// purposes (each wrapper only calls it once, from its own Close).
func (b *Backends) Close() {
	_ = b.Broker.Close()
	_ = b.Store.Close()
}

// WorkerChannel names the request/callback channel pair one or more
// pipeline nodes share, per spec.md §6's channel naming table.
type WorkerChannel struct {
	WorkerName      string
	RequestChannel  string
	CallbackChannel string
	Timeout         time.Duration
}

// Channel groups, matching spec.md §6 exactly. "ai" and
// "media_processing" are each shared by three pipeline nodes: the
// branch-final AI-style steps (summarize_document, analyze_image_with_ai,
// generate_video_summary) share the ai channel pair; the earlier
// per-branch transform steps (generate_thumbnails, extract_audio,
// transcribe_audio) share media_processing. A worker instance listening
// on a shared channel dispatches on the JobState it receives (branch
// and step identify which transformation to run); see
// workerservice/demo's dispatch functions.
var (
	ChannelValidation = WorkerChannel{WorkerName: "validation", RequestChannel: "validation_queue", CallbackChannel: "validation_callback_queue", Timeout: 30 * time.Second}
	ChannelMetadata    = WorkerChannel{WorkerName: "metadata", RequestChannel: "extract_metadata_queue", CallbackChannel: "extract_metadata_callback_queue", Timeout: 30 * time.Second}
	ChannelExtractText = WorkerChannel{WorkerName: "extract_text", RequestChannel: "extract_text_queue", CallbackChannel: "extract_text_callback_queue", Timeout: 300 * time.Second}
	ChannelAI          = WorkerChannel{WorkerName: "ai", RequestChannel: "ai_queue", CallbackChannel: "ai_callback_queue", Timeout: 300 * time.Second}
	ChannelMedia       = WorkerChannel{WorkerName: "media_processing", RequestChannel: "media_processing_queue", CallbackChannel: "media_processing_callback_queue", Timeout: 300 * time.Second}
)

// NodeChannel maps a pipeline node name to the channel group that
// serves it. route_workflow is absent: it runs in-process.
var NodeChannel = map[string]WorkerChannel{
	orchestrator.NodeValidateFile: ChannelValidation,
	orchestrator.NodeExtractMeta:  ChannelMetadata,
	orchestrator.NodeExtractText:  ChannelExtractText,
	orchestrator.NodeSummarize:    ChannelAI,
	orchestrator.NodeAnalyzeImage: ChannelAI,
	orchestrator.NodeVideoSummary: ChannelAI,
	orchestrator.NodeThumbnails:   ChannelMedia,
	orchestrator.NodeExtractAudio: ChannelMedia,
	orchestrator.NodeTranscribe:   ChannelMedia,
}

// WorkerKinds is the set of --kind values cmd/worker accepts, in the
// order SPEC_FULL.md §1 lists them (router-noop omitted: routing is an
// internal node, not a worker).
var WorkerKinds = []string{
	"validation", "metadata", "extract-text", "summarize",
	"thumbnails", "analyze-image", "extract-audio", "transcribe", "video-summary",
}

// NodeForKind maps a --kind value to the pipeline node name it
// implements.
var NodeForKind = map[string]string{
	"validation":     orchestrator.NodeValidateFile,
	"metadata":       orchestrator.NodeExtractMeta,
	"extract-text":   orchestrator.NodeExtractText,
	"summarize":      orchestrator.NodeSummarize,
	"thumbnails":     orchestrator.NodeThumbnails,
	"analyze-image":  orchestrator.NodeAnalyzeImage,
	"extract-audio":  orchestrator.NodeExtractAudio,
	"transcribe":     orchestrator.NodeTranscribe,
	"video-summary":  orchestrator.NodeVideoSummary,
}
