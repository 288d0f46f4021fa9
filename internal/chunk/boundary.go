package chunk

import "unicode"

// boundary kinds in order of preference.
type boundary int

const (
	boundaryParagraph boundary = iota
	boundaryHeading
	boundarySentence
	boundaryLine
	boundarySpace
)

var preference = []boundary{
	boundaryParagraph,
	boundaryHeading,
	boundarySentence,
	boundaryLine,
	boundarySpace,
}

// BoundaryChunker cuts near the target size at the most natural break found in a
// tolerance window below it, and falls back to a hard cut.
type BoundaryChunker struct {
	// WindowRatio is the fraction of the target searched backwards for a break.
	// Zero means 0.25.
	WindowRatio float64
}

// NewBoundaryChunker returns a chunker with the default window.
func NewBoundaryChunker() *BoundaryChunker {
	return &BoundaryChunker{}
}

var _ TextChunker = (*BoundaryChunker)(nil)

// Chunk implements TextChunker.
func (c *BoundaryChunker) Chunk(text string, targetSize, overlap int) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	targetSize, overlap = normalize(targetSize, overlap)
	window := c.window(targetSize)

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + targetSize
		if end >= n {
			end = n
		} else {
			lo := max(start+overlap+1, end-window)
			end = splitPoint(runes, lo, end)
		}

		if s, e, ok := trim(runes, start, end); ok {
			chunks = append(chunks, Chunk{
				Text:        string(runes[s:e]),
				StartOffset: s,
				EndOffset:   e,
				Index:       len(chunks),
			})
		}

		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func (c *BoundaryChunker) window(targetSize int) int {
	ratio := c.WindowRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.25
	}
	w := int(float64(targetSize) * ratio)
	if w < 1 {
		w = 1
	}
	return w
}

// normalize maps invalid parameters onto usable ones.
func normalize(targetSize, overlap int) (int, int) {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= targetSize {
		overlap = targetSize / 2
	}
	return targetSize, overlap
}

// splitPoint returns the cut position in [lo, hi] for the most preferred
// boundary, latest first, or hi when none exists.
func splitPoint(runes []rune, lo, hi int) int {
	if lo > hi {
		return hi
	}
	for _, kind := range preference {
		for p := hi; p >= lo; p-- {
			if isBoundary(runes, p, kind) {
				return p
			}
		}
	}
	return hi
}

// isBoundary reports whether cutting before runes[p] splits at kind.
func isBoundary(runes []rune, p int, kind boundary) bool {
	if p <= 0 || p >= len(runes) {
		return false
	}
	prev := runes[p-1]

	switch kind {
	case boundaryParagraph:
		return p >= 2 && prev == '\n' && runes[p-2] == '\n'
	case boundaryHeading:
		if prev != '\n' || runes[p] != '#' {
			return false
		}
		q := p
		for q < len(runes) && runes[q] == '#' {
			q++
		}
		return q < len(runes) && runes[q] == ' '
	case boundarySentence:
		if p < 2 || !unicode.IsSpace(prev) {
			return false
		}
		switch runes[p-2] {
		case '.', '!', '?':
			return true
		}
		return false
	case boundaryLine:
		return prev == '\n'
	case boundarySpace:
		return unicode.IsSpace(prev)
	}
	return false
}

// trim narrows [start, end) to exclude surrounding whitespace.
func trim(runes []rune, start, end int) (int, int, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end, start < end
}
