package retrieval

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer converts between text and token IDs.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// =============================================================================
// TIKTOKEN TOKENIZER
// =============================================================================

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int  { return t.enc.Encode(text, nil, nil) }
func (t tiktokenTokenizer) Decode(tokens []int) string { return t.enc.Decode(tokens) }

var loaderOnce sync.Once

// NewTiktokenTokenizer returns a tokenizer for the named encoding
// (e.g. "cl100k_base"). BPE ranks come from the embedded offline loader,
// so no network access is needed.
func NewTiktokenTokenizer(encoding string) (Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return tiktokenTokenizer{enc: enc}, nil
}

// =============================================================================
// TOKEN SPLITTER
// =============================================================================

// SplitterConfig bounds chunk sizes.
type SplitterConfig struct {
	ChunkSize             int  // tokens per chunk
	MinChunkSizeChars     int  // a chunk is cut at its last punctuation only beyond this many chars
	MinChunkLengthToEmbed int  // shorter chunks are dropped
	MaxNumChunks          int  // per document
	KeepSeparator         bool // keep newlines inside chunks
}

// DefaultSplitterConfig returns the standard chunking parameters.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:             800,
		MinChunkSizeChars:     350,
		MinChunkLengthToEmbed: 5,
		MaxNumChunks:          10000,
		KeepSeparator:         true,
	}
}

// Splitter cuts documents into token-bounded chunks. It is deterministic and
// never merges text across documents.
type Splitter struct {
	tok Tokenizer
	cfg SplitterConfig
}

// NewSplitter creates a splitter. A non-positive ChunkSize or MaxNumChunks takes its default.
func NewSplitter(tok Tokenizer, cfg SplitterConfig) *Splitter {
	def := DefaultSplitterConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.MinChunkSizeChars < 0 {
		cfg.MinChunkSizeChars = def.MinChunkSizeChars
	}
	if cfg.MinChunkLengthToEmbed < 0 {
		cfg.MinChunkLengthToEmbed = def.MinChunkLengthToEmbed
	}
	if cfg.MaxNumChunks <= 0 {
		cfg.MaxNumChunks = def.MaxNumChunks
	}
	return &Splitter{tok: tok, cfg: cfg}
}

// Split returns the chunk texts of one document.
//
// Each step takes up to ChunkSize tokens, decodes them, and if the decoded
// text has a sentence end ('.', '?', '!' or newline) past MinChunkSizeChars,
// cuts just after it. The tokens of the kept text are consumed and the rest
// carries over to the next chunk.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.tok.Encode(text)
	var chunks []string

	for len(tokens) > 0 && len(chunks) < s.cfg.MaxNumChunks {
		n := s.cfg.ChunkSize
		if n > len(tokens) {
			n = len(tokens)
		}
		n = s.runeBoundary(tokens, n)
		chunkText := s.tok.Decode(tokens[:n])

		if strings.TrimSpace(chunkText) == "" {
			tokens = tokens[n:]
			continue
		}

		consumed := n
		if cut := lastSentenceEnd(chunkText); cut != -1 && cut > s.cfg.MinChunkSizeChars {
			consumed = s.prefixTokens(tokens[:n], chunkText[:cut+1])
			chunkText = s.tok.Decode(tokens[:consumed])
		}

		if out := s.clean(chunkText); len(out) > s.cfg.MinChunkLengthToEmbed {
			chunks = append(chunks, out)
		}
		tokens = tokens[consumed:]
	}

	// Tail beyond MaxNumChunks is kept as one final chunk.
	if len(tokens) > 0 {
		if rest := strings.TrimSpace(strings.ReplaceAll(s.tok.Decode(tokens), "\n", " ")); len(rest) > s.cfg.MinChunkLengthToEmbed {
			chunks = append(chunks, rest)
		}
	}

	return chunks
}

// runeBoundary adjusts a window of n tokens so that it does not end inside
// a multi-byte character. Byte-level BPE tokens can split one rune across
// several tokens. It prefers shrinking; when no shorter prefix decodes
// cleanly it grows instead.
func (s *Splitter) runeBoundary(tokens []int, n int) int {
	for m := n; m > 0; m-- {
		if utf8.ValidString(s.tok.Decode(tokens[:m])) {
			return m
		}
	}
	for m := n + 1; m <= len(tokens); m++ {
		if utf8.ValidString(s.tok.Decode(tokens[:m])) {
			return m
		}
	}
	return n
}

// prefixTokens returns the largest m such that tokens[:m] decodes to a valid
// prefix of text. A sentence cut may fall inside a token, in which case the
// chunk ends at the token boundary before it. It returns len(tokens) when no
// such prefix exists.
func (s *Splitter) prefixTokens(tokens []int, text string) int {
	lo, hi := 0, len(tokens)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if len(s.tok.Decode(tokens[:mid])) <= len(text) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	for m := lo; m > 0; m-- {
		if d := s.tok.Decode(tokens[:m]); strings.HasPrefix(text, d) && utf8.ValidString(d) {
			return m
		}
	}
	return len(tokens)
}

func (s *Splitter) clean(chunk string) string {
	if !s.cfg.KeepSeparator {
		chunk = strings.ReplaceAll(chunk, "\n", " ")
	}
	return strings.TrimSpace(chunk)
}

func lastSentenceEnd(s string) int {
	return strings.LastIndexAny(s, ".?!\n")
}
