package chunker

import (
	"fmt"
	"strings"

	"github.com/nomadlaws/legalbot/internal/port"
)

// Chunker splits raw text into overlapping word-count windows.
// It is a pure function of its inputs and holds no state beyond the
// window parameters.
type Chunker struct {
	size    int // words per chunk
	overlap int // words shared with the previous chunk
}

// New validates the window parameters. overlap must be strictly smaller
// than size, otherwise the window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", port.ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", port.ErrInvalidChunking, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks text into chunks of up to size consecutive words, each
// chunk sharing overlap words with its predecessor. The last chunk takes
// whatever words remain. Empty text yields no chunks.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
