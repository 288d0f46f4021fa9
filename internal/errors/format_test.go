package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	err := New(ErrCodeNoProjectFound, "no project found above /tmp/x", nil).
		WithSuggestion("run 'ram init' in your project root")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: no project found above /tmp/x")
	assert.Contains(t, out, "Hint: run 'ram init' in your project root")
	assert.Contains(t, out, "Code: ERR_408_NO_PROJECT_FOUND")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatForLog_SortsDetails(t *testing.T) {
	err := New(ErrCodeFileTooLarge, "too big", errors.New("stat")).
		WithDetail("size", "11").
		WithDetail("limit", "10")

	attrs := FormatForLog(err)

	assert.Contains(t, attrs, "cause")
	idxLimit, idxSize := -1, -1
	for i, a := range attrs {
		switch a {
		case "detail_limit":
			idxLimit = i
		case "detail_size":
			idxSize = i
		}
	}
	assert.Less(t, idxLimit, idxSize)
	assert.Equal(t, []any{"error", "plain"}, FormatForLog(errors.New("plain")))
}
