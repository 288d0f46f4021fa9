package logging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ram.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func logLine(level, msg string) string {
	return fmt.Sprintf(`{"time":"2026-01-02T10:11:12.5Z","level":%q,"msg":%q,"scope":"global"}`, level, msg)
}

func TestViewer_TailKeepsLastLines(t *testing.T) {
	// Given: a log with four entries
	path := writeLog(t,
		logLine("INFO", "one"), logLine("INFO", "two"),
		logLine("INFO", "three"), logLine("INFO", "four"))
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	// When: tailing two lines
	entries, err := v.Tail(path, 2)

	// Then: only the last two are returned, in order
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Msg)
	assert.Equal(t, "four", entries[1].Msg)
}

func TestViewer_TailFiltersByLevelAndPattern(t *testing.T) {
	path := writeLog(t,
		logLine("DEBUG", "scope_resolved"),
		logLine("INFO", "index_started"),
		logLine("ERROR", "index_failed"),
		logLine("WARN", "store_busy_retrying"))

	v := NewViewer(ViewerConfig{Level: "warn"}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "index_failed", entries[0].Msg)

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`index_`)}, &bytes.Buffer{})
	entries, err = v.Tail(path, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestViewer_TailMissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	_, err := v.Tail(filepath.Join(t.TempDir(), "nope.log"), 10)

	assert.Error(t, err)
}

func TestViewer_FormatSortsAttributes(t *testing.T) {
	// Given: an entry with several attributes
	e := ParseEntry(`{"time":"2026-01-02T10:11:12.5Z","level":"INFO","msg":"index_complete","scope":"local","chunks":4,"run_id":"abc"}`)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	// When: formatting
	line := v.Format(e)

	// Then: level, message and sorted attributes appear without colour codes
	assert.Contains(t, line, "INFO  index_complete chunks=4 run_id=abc scope=local")
	assert.NotContains(t, line, "\033[")
}

func TestViewer_FormatPassesThroughPlainText(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	e := ParseEntry("panic: something broke")

	assert.False(t, e.Valid)
	assert.Equal(t, "panic: something broke", v.Format(e))
}

func TestViewer_FormatColoursLevel(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	line := v.Format(ParseEntry(logLine("ERROR", "boom")))

	assert.Contains(t, line, "\033[31mERROR\033[0m")
}

func TestViewer_FollowSeesAppendedLines(t *testing.T) {
	// Given: an existing log being followed
	path := writeLog(t, logLine("INFO", "old"))
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries := make(chan Entry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// When: a new line is appended
	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(logLine("INFO", "new") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the new entry is delivered
	select {
	case e := <-entries:
		assert.Equal(t, "new", e.Msg)
	case <-ctx.Done():
		t.Fatal("no entry delivered")
	}
	cancel()
	assert.NoError(t, <-done)
}
