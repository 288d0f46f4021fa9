// Package chunk splits text into ordered, bounded, offset-tracked segments.
package chunk

// Chunk size defaults, in characters (runes).
const (
	DefaultTargetSize = 512
	DefaultOverlap    = 50
)

// Chunk is a segment of a source text.
// StartOffset and EndOffset are rune positions in the original text, so
// []rune(text)[StartOffset:EndOffset] equals Text.
type Chunk struct {
	Text        string
	StartOffset int
	EndOffset   int
	// Index is the position among kept chunks, contiguous from 0.
	Index int
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// TextChunker splits text into chunks of about targetSize runes, repeating
// overlap runes at the start of each following chunk. Implementations must be
// deterministic and return no chunks for empty or whitespace-only text.
type TextChunker interface {
	Chunk(text string, targetSize, overlap int) []Chunk
}
