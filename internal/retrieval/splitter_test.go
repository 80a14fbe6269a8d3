package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, DefaultSplitterConfig())
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("  \n\t "))
}

func TestSplitShortDocumentIsOneChunk(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, DefaultSplitterConfig())
	assert.Equal(t, []string{"Art. 1 Contracts bind."}, s.Split("  Art. 1 Contracts bind.  "))
}

func TestSplitCutsAtSentenceEnd(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, SplitterConfig{
		ChunkSize:             20,
		MinChunkSizeChars:     5,
		MinChunkLengthToEmbed: 1,
		MaxNumChunks:          100,
		KeepSeparator:         true,
	})

	got := s.Split("First sentence. Second one here. Third.")
	assert.Equal(t, []string{"First sentence.", "Second one here.", "Third."}, got)
}

func TestSplitDoesNotCutBeforeMinChars(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, SplitterConfig{
		ChunkSize:             10,
		MinChunkSizeChars:     8,
		MinChunkLengthToEmbed: 0,
		MaxNumChunks:          100,
		KeepSeparator:         true,
	})

	// The only period is at index 1, below MinChunkSizeChars, so the full
	// 10-token window is kept.
	got := s.Split("A. bcdefghijklmn")
	require.NotEmpty(t, got)
	assert.Equal(t, "A. bcdefgh", got[0])
}

func TestSplitDropsTinyChunks(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, SplitterConfig{
		ChunkSize:             6,
		MinChunkSizeChars:     0,
		MinChunkLengthToEmbed: 3,
		MaxNumChunks:          100,
		KeepSeparator:         true,
	})
	for _, c := range s.Split("ab. cdefgh. i.") {
		assert.Greater(t, len(c), 3, c)
	}
}

func TestSplitSeparatorHandling(t *testing.T) {
	cfg := SplitterConfig{ChunkSize: 100, MinChunkSizeChars: 1000, MinChunkLengthToEmbed: 0, MaxNumChunks: 10, KeepSeparator: true}
	assert.Equal(t, []string{"line one\nline two"}, NewSplitter(runeTokenizer{}, cfg).Split("line one\nline two"))

	cfg.KeepSeparator = false
	assert.Equal(t, []string{"line one line two"}, NewSplitter(runeTokenizer{}, cfg).Split("line one\nline two"))
}

func TestSplitMaxNumChunksKeepsTail(t *testing.T) {
	s := NewSplitter(runeTokenizer{}, SplitterConfig{
		ChunkSize:             5,
		MinChunkSizeChars:     100,
		MinChunkLengthToEmbed: 0,
		MaxNumChunks:          2,
		KeepSeparator:         true,
	})
	got := s.Split("aaaaabbbbbcccccddddd")
	assert.Equal(t, []string{"aaaaa", "bbbbb", "cccccddddd"}, got)
}

func TestSplitIsDeterministicAndLossless(t *testing.T) {
	text := strings.Repeat("The lessee shall pay rent monthly. Notice must be given in writing!\n", 40)
	s := NewSplitter(runeTokenizer{}, SplitterConfig{
		ChunkSize:             120,
		MinChunkSizeChars:     30,
		MinChunkLengthToEmbed: 0,
		MaxNumChunks:          1000,
		KeepSeparator:         true,
	})

	a := s.Split(text)
	b := s.Split(text)
	assert.Equal(t, a, b)

	for _, c := range a {
		assert.LessOrEqual(t, len([]rune(c)), 120)
	}
	// Only whitespace is lost at chunk boundaries.
	strip := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, strip(text), strip(strings.Join(a, " ")))
}

// byteTokenizer emits one token per byte, so most non-ASCII runes span
// several tokens.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

func (byteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

const czechClause = "Smluvní pokuta činí 0,5 % z dlužné částky za každý den prodlení. Zaměstnanec má nárok na přiměřenou náhradu škody."

func TestSplitNeverCutsInsideARune(t *testing.T) {
	s := NewSplitter(byteTokenizer{}, SplitterConfig{
		ChunkSize:             7,
		MinChunkSizeChars:     100,
		MinChunkLengthToEmbed: 0,
		MaxNumChunks:          1000,
		KeepSeparator:         true,
	})

	got := s.Split(czechClause)
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.True(t, utf8.ValidString(c), "%q", c)
		assert.LessOrEqual(t, len(c), 7, c)
	}
	strip := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, strip(czechClause), strip(strings.Join(got, " ")))
}

func TestSplitGrowsWindowForWideRune(t *testing.T) {
	// A 4-byte rune cannot fit a 2-token window; the window grows to hold it.
	s := NewSplitter(byteTokenizer{}, SplitterConfig{ChunkSize: 2, MinChunkSizeChars: 100, MaxNumChunks: 100, KeepSeparator: true})
	assert.Equal(t, []string{"𝄞", "ab"}, s.Split("𝄞ab"))
}

func TestTiktokenSplitProducesValidUTF8(t *testing.T) {
	tok, err := NewTiktokenTokenizer("cl100k_base")
	require.NoError(t, err)

	s := NewSplitter(tok, SplitterConfig{ChunkSize: 7, MinChunkSizeChars: 10, MinChunkLengthToEmbed: 0, MaxNumChunks: 1000, KeepSeparator: true})
	got := s.Split(strings.Repeat(czechClause+" ", 5))
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.True(t, utf8.ValidString(c), "%q", c)
	}
}

func TestTiktokenTokenizer(t *testing.T) {
	tok, err := NewTiktokenTokenizer("cl100k_base")
	require.NoError(t, err)

	text := "The contractor shall indemnify the client."
	tokens := tok.Encode(text)
	assert.NotEmpty(t, tokens)
	assert.Less(t, len(tokens), len(text))
	assert.Equal(t, text, tok.Decode(tokens))

	s := NewSplitter(tok, SplitterConfig{ChunkSize: 8, MinChunkSizeChars: 10, MinChunkLengthToEmbed: 0, MaxNumChunks: 100, KeepSeparator: true})
	for _, c := range s.Split(strings.Repeat(text+" ", 10)) {
		assert.LessOrEqual(t, len(tok.Encode(c)), 8, c)
	}

	_, err = NewTiktokenTokenizer("no_such_encoding")
	assert.Error(t, err)
}
