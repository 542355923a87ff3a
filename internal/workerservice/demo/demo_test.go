package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

func TestValidationRejectsUnsupportedContentType(t *testing.T) {
	process := Validation(ValidationConfig{AllowedContentTypes: []string{"application/pdf"}})
	state := jobstate.New("job1", "/tmp/a.zip", "application/zip", "abc", "", time.Now().UTC())

	result := process(context.Background(), state)

	assert.Equal(t, jobstate.StatusFailed, result.Status)
	assert.Equal(t, "validate_file_failed", result.Step)
}

func TestValidationRejectsSentinelChecksum(t *testing.T) {
	process := Validation(ValidationConfig{
		AllowedContentTypes:    []string{"application/pdf"},
		EnableChecksumSentinel: true,
	})
	state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "deadbeef0", "", time.Now().UTC())

	result := process(context.Background(), state)

	assert.Equal(t, jobstate.StatusFailed, result.Status)
	assert.Contains(t, result.Metadata["errors"], "checksum rejected by dev sentinel policy (ends in '0')")
}

func TestValidationPassesAllowedContentTypeAndChecksum(t *testing.T) {
	process := Validation(ValidationConfig{
		AllowedContentTypes:    []string{"application/pdf"},
		EnableChecksumSentinel: true,
	})
	state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "deadbeef1", "", time.Now().UTC())

	result := process(context.Background(), state)

	assert.NotEqual(t, jobstate.StatusFailed, result.Status)
	assert.Equal(t, "validate_file_done", result.Step)
	assert.Equal(t, "passed", result.Metadata["validation"])
}

func TestValidationSentinelDisabledAllowsTrailingZero(t *testing.T) {
	process := Validation(ValidationConfig{
		AllowedContentTypes:    []string{"application/pdf"},
		EnableChecksumSentinel: false,
	})
	state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "deadbeef0", "", time.Now().UTC())

	result := process(context.Background(), state)

	assert.Equal(t, "validate_file_done", result.Step)
}

func TestAIDispatchesOnBranch(t *testing.T) {
	cases := []struct {
		name     string
		branch   jobstate.Branch
		wantStep string
	}{
		{"pdf branch summarizes", jobstate.BranchPDF, "summarize_document"},
		{"image branch analyzes", jobstate.BranchImage, "analyze_image_with_ai"},
		{"video branch summarizes video", jobstate.BranchVideo, "generate_video_summary"},
		{"unrouted defaults to summarize", jobstate.BranchNone, "summarize_document"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := jobstate.New("job1", "/tmp/a", jobstate.ContentTypePDF, "", "", time.Now().UTC())
			state.Branch = tc.branch

			result := AI(context.Background(), state)

			assert.Equal(t, jobstate.StatusSuccess, result.Status)
			assert.Equal(t, tc.wantStep, result.Step)
		})
	}
}

func TestMediaProcessingDispatchesOnBranchAndStep(t *testing.T) {
	t.Run("image branch generates thumbnails", func(t *testing.T) {
		state := jobstate.New("job1", "/tmp/a.png", "image/png", "", "", time.Now().UTC())
		state.Branch = jobstate.BranchImage

		result := MediaProcessing(context.Background(), state)
		assert.Equal(t, "generate_thumbnails_done", result.Step)
	})

	t.Run("video branch extracts audio first", func(t *testing.T) {
		state := jobstate.New("job1", "/tmp/a.mp4", "video/mp4", "", "", time.Now().UTC())
		state.Branch = jobstate.BranchVideo

		result := MediaProcessing(context.Background(), state)
		assert.Equal(t, NodeExtractAudioDone, result.Step)
	})

	t.Run("video branch transcribes after audio extraction", func(t *testing.T) {
		state := jobstate.New("job1", "/tmp/a.mp4", "video/mp4", "", "", time.Now().UTC())
		state.Branch = jobstate.BranchVideo
		state.Step = NodeExtractAudioDone

		result := MediaProcessing(context.Background(), state)
		assert.Equal(t, "transcribe_audio_done", result.Step)
	})

	t.Run("pdf branch is rejected", func(t *testing.T) {
		state := jobstate.New("job1", "/tmp/a.pdf", jobstate.ContentTypePDF, "", "", time.Now().UTC())
		state.Branch = jobstate.BranchPDF

		result := MediaProcessing(context.Background(), state)
		assert.Equal(t, jobstate.StatusFailed, result.Status)
	})
}

func TestMetadataFallsBackToDeterministicSizeWhenFileMissing(t *testing.T) {
	state := jobstate.New("job1", "/nonexistent/path/file.pdf", jobstate.ContentTypePDF, "", "", time.Now().UTC())

	result := Metadata(context.Background(), state)

	require.Contains(t, result.Metadata, "file_size")
	assert.Equal(t, "extract_metadata_done", result.Step)
}
