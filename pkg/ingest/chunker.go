package ingest

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping windows of runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a chunker. Non-positive size selects the default, and
// overlap is clamped to [0, size).
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return Chunker{size: size, overlap: overlap}
}

// Size returns the window size in runes.
func (c Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive windows.
func (c Chunker) Overlap() int { return c.overlap }

// Split collapses runs of whitespace to single spaces and cuts the result
// into windows of at most Size runes, each starting Size-Overlap runes after
// the previous one. Blank input yields no chunks.
func (c Chunker) Split(text string) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
