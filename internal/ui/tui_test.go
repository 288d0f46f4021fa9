package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_ReturnsNilForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	cfg := NewConfig(&bytes.Buffer{})

	// When: creating TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: returns error
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIndexingModel_ViewShowsStageAndProgress(t *testing.T) {
	// Given: a model receiving an embedding update
	model := newIndexingModel()
	model.styles = NoColorStyles()
	_, _ = model.Update(progressUpdateMsg{Stage: StageEmbedding, Current: 3, Total: 6, Message: "a.txt"})

	// When: rendering
	view := model.View()

	// Then: stage, counts and message are shown
	assert.Contains(t, view, "Embedding")
	assert.Contains(t, view, "3/6")
	assert.Contains(t, view, "a.txt")
}

func TestIndexingModel_CompleteQuits(t *testing.T) {
	model := newIndexingModel()

	_, cmd := model.Update(completeMsg{Source: "a.txt", Chunks: 2})

	assert.True(t, model.complete)
	assert.NotNil(t, cmd)
	assert.Empty(t, model.View())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m05s", formatDuration(125*time.Second))
}

func TestTruncate_KeepsTail(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...nes.md", truncate("/very/long/path/to/notes.md", 9))
}
