package extract

import "strings"

// Default window settings.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into fixed-size overlapping windows measured in runes.
// Window i starts at i*(Size-Overlap). Every window but the last is exactly
// Size runes long, and adjacent windows share exactly Overlap runes.
type Chunker struct {
	Size    int
	Overlap int
}

// DefaultChunker returns 1000-rune windows overlapping by 200 runes.
func DefaultChunker() Chunker {
	return Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Validate checks that the chunker advances on every window.
func (c Chunker) Validate() error {
	if c.Size <= 0 || c.Overlap < 0 || c.Overlap >= c.Size {
		return ErrInvalidChunker
	}
	return nil
}

// Split returns the windows of text in order. Empty text yields no windows.
func (c Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	stride := c.Size - c.Overlap

	var windows []string
	for start := 0; ; start += stride {
		end := min(start+c.Size, len(runes))
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}

// Reconstruct joins windows produced by Split back into the original text
// by dropping the shared prefix of every window after the first.
func (c Chunker) Reconstruct(windows []string) string {
	var sb strings.Builder
	for i, w := range windows {
		if i == 0 {
			sb.WriteString(w)
			continue
		}
		runes := []rune(w)
		if len(runes) > c.Overlap {
			sb.WriteString(string(runes[c.Overlap:]))
		}
	}
	return sb.String()
}
