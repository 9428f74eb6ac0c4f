package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"supportrag/internal/domain"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 50

	// breakLookback is how far back from the window edge a sentence or
	// line break is searched for.
	breakLookback = 100
)

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	manySpaces   = regexp.MustCompile(` {2,}`)
)

// TextChunker slides a character window over text, preferring to cut at
// the last ". " or newline near the window edge.
type TextChunker struct {
	size    int
	overlap int
}

func NewTextChunker(size, overlap int) *TextChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &TextChunker{size: size, overlap: overlap}
}

// Chunk yields chunks lazily; ranging over the result again restarts from
// the beginning. Each chunk carries metadata plus start_char, end_char and
// chunk_id.
func (c *TextChunker) Chunk(text string, metadata map[string]string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		runes := []rune(normalizeWhitespace(text))
		n := len(runes)

		start := 0
		for start < n {
			end := min(start+c.size, n)
			if end < n {
				if bp := lastBreak(runes, max(end-breakLookback, start), end); bp > start {
					end = bp + 1
				}
			}

			content := strings.TrimSpace(string(runes[start:end]))
			if content != "" {
				meta := maps.Clone(metadata)
				if meta == nil {
					meta = make(map[string]string, 3)
				}
				meta["start_char"] = strconv.Itoa(start)
				meta["end_char"] = strconv.Itoa(end)
				meta["chunk_id"] = generateChunkID(chunkKey(metadata), start, end)
				if !yield(domain.Chunk{Content: content, Metadata: meta}) {
					return
				}
			}

			if end >= n {
				return
			}
			next := end - c.overlap
			if next <= start {
				next = end
			}
			start = next
		}
	}
}

func normalizeWhitespace(text string) string {
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return manySpaces.ReplaceAllString(text, " ")
}

// lastBreak returns the position of the last ". " (the dot) or newline lying
// entirely within runes[from:to], or -1.
func lastBreak(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if runes[i] == '\n' {
			return i
		}
		if runes[i] == '.' && i+1 < to && runes[i+1] == ' ' {
			return i
		}
	}
	return -1
}

func chunkKey(metadata map[string]string) string {
	key := metadata["source"]
	if sec, ok := metadata["section"]; ok {
		key += "#" + sec
	}
	return key
}

func generateChunkID(source string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", source, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
