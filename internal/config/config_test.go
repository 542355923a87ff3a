package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sunzheini/AegisAI-sub000/internal/orchestrator"
)

func TestEnvOrDefault(t *testing.T) {
	const key = "INGEST_TEST_ENV_OR_DEFAULT"
	os.Unsetenv(key)

	assert.Equal(t, "fallback", EnvOrDefault(key, "fallback"))

	require.NoError(t, os.Setenv(key, "explicit"))
	defer os.Unsetenv(key)
	assert.Equal(t, "explicit", EnvOrDefault(key, "fallback"))
}

func TestBuildBackendsRejectsUnknownBackend(t *testing.T) {
	_, err := BuildBackends("memcached", "", "")
	assert.Error(t, err)
}

func TestBuildBackendsBolt(t *testing.T) {
	path := t.TempDir() + "/state.db"
	backends, err := BuildBackends("bolt", "", path)
	require.NoError(t, err)
	defer backends.Close()

	assert.NotNil(t, backends.Broker)
	assert.NotNil(t, backends.Store)
}

func TestEveryWorkerBoundNodeHasAChannel(t *testing.T) {
	nodes := []string{
		orchestrator.NodeValidateFile,
		orchestrator.NodeExtractMeta,
		orchestrator.NodeExtractText,
		orchestrator.NodeSummarize,
		orchestrator.NodeThumbnails,
		orchestrator.NodeAnalyzeImage,
		orchestrator.NodeExtractAudio,
		orchestrator.NodeTranscribe,
		orchestrator.NodeVideoSummary,
	}
	for _, node := range nodes {
		t.Run(node, func(t *testing.T) {
			_, ok := NodeChannel[node]
			assert.True(t, ok, "node %q must have a channel entry", node)
		})
	}
	_, hasRoute := NodeChannel[orchestrator.NodeRouteWorkflow]
	assert.False(t, hasRoute, "route_workflow runs in-process and must not have a channel entry")
}

func TestSharedChannelsGroupTheRightNodes(t *testing.T) {
	assert.Equal(t, ChannelAI, NodeChannel[orchestrator.NodeSummarize])
	assert.Equal(t, ChannelAI, NodeChannel[orchestrator.NodeAnalyzeImage])
	assert.Equal(t, ChannelAI, NodeChannel[orchestrator.NodeVideoSummary])

	assert.Equal(t, ChannelMedia, NodeChannel[orchestrator.NodeThumbnails])
	assert.Equal(t, ChannelMedia, NodeChannel[orchestrator.NodeExtractAudio])
	assert.Equal(t, ChannelMedia, NodeChannel[orchestrator.NodeTranscribe])
}

func TestWorkerKindsAndNodeForKindAgree(t *testing.T) {
	require.Equal(t, len(WorkerKinds), len(NodeForKind))
	for _, kind := range WorkerKinds {
		node, ok := NodeForKind[kind]
		assert.True(t, ok, "kind %q must map to a node", kind)
		assert.NotEmpty(t, node)
	}
}
