package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_ReconstructsText(t *testing.T) {
	c := DefaultChunker()
	tests := []struct {
		name   string
		length int
	}{
		{name: "shorter than one window", length: 10},
		{name: "exactly one window", length: 1000},
		{name: "one window plus one", length: 1001},
		{name: "exact stride multiple", length: 1800},
		{name: "long article", length: 7345},
		{name: "tail shorter than overlap", length: 1000 + 800 + 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := sampleText(tt.length)
			windows := c.Split(text)
			require.NotEmpty(t, windows)
			assert.Equal(t, text, c.Reconstruct(windows))
		})
	}
}

func TestChunker_OverlapIsExact(t *testing.T) {
	c := DefaultChunker()
	windows := c.Split(sampleText(5321))
	require.Greater(t, len(windows), 2)

	for i := 0; i+1 < len(windows); i++ {
		cur := []rune(windows[i])
		next := []rune(windows[i+1])
		assert.Len(t, cur, 1000, "window %d", i)
		require.GreaterOrEqual(t, len(next), 200)
		assert.Equal(t, string(cur[len(cur)-200:]), string(next[:200]), "pair %d", i)
	}
	assert.LessOrEqual(t, len([]rune(windows[len(windows)-1])), 1000)
}

func TestChunker_CountsRunes(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 1}
	windows := c.Split("héllo wörld")
	assert.Equal(t, []string{"héll", "lo w", "wörl", "ld"}, windows)
	assert.Equal(t, "héllo wörld", c.Reconstruct(windows))
}

func TestChunker_EmptyText(t *testing.T) {
	assert.Empty(t, DefaultChunker().Split(""))
	assert.Equal(t, "", DefaultChunker().Reconstruct(nil))
}

func TestChunker_Validate(t *testing.T) {
	assert.NoError(t, DefaultChunker().Validate())
	assert.ErrorIs(t, Chunker{Size: 10, Overlap: 10}.Validate(), ErrInvalidChunker)
	assert.ErrorIs(t, Chunker{Size: 0}.Validate(), ErrInvalidChunker)
	assert.ErrorIs(t, Chunker{Size: 10, Overlap: -1}.Validate(), ErrInvalidChunker)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Headline Body text ends.", Normalize("Headline\r\n\r\nBody text\nends."))
	assert.Equal(t, "tabs\tstay  as they are", Normalize("tabs\tstay  as they are"))
	assert.Equal(t, " ", Normalize("\n\r\n"))
}

// sampleText builds a deterministic text with varied characters.
func sampleText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz ÄÖÜ.,"
	runes := []rune(alphabet)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(runes[(i*7+i/13)%len(runes)])
	}
	return sb.String()
}
