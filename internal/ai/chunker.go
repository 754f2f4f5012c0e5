package ai

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// chunkSeparators are tried in order; earlier ones keep larger units together.
var chunkSeparators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("chunk size=%d overlap=%d: %w", size, overlap, appErr.ErrInvalidConfig)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int {
	return c.size
}

func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split cuts doc into chunks of at most Size runes. Each chunk after the first
// starts Overlap runes before the end of the previous one, so dropping the
// first Overlap runes of every later chunk and concatenating gives back the text.
func (c *Chunker) Split(doc model.Document) []model.Chunk {
	runes := []rune(doc.Text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var chunks []model.Chunk
	start := 0
	for {
		end := n
		if n-start > c.size {
			end = c.cutPoint(runes, start)
		}
		chunks = append(chunks, model.Chunk{
			ID:      chunkID(doc.Source, len(chunks), start),
			Content: string(runes[start:end]),
			Meta: model.ChunkMeta{
				Source:   doc.Source,
				Position: len(chunks),
				Start:    start,
				End:      end,
			},
		})
		if end >= n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

func (c *Chunker) cutPoint(runes []rune, start int) int {
	hi := start + c.size
	lo := start + c.overlap
	if half := start + c.size/2; half > lo {
		lo = half
	}
	for _, sep := range chunkSeparators {
		if cut := lastCut(runes, lo, hi, sep); cut > 0 {
			return cut
		}
	}
	return hi
}

// lastCut returns the position right after the last sep ending in (lo, hi], or -1.
func lastCut(runes []rune, lo, hi int, sep []rune) int {
	for pos := hi - len(sep); pos+len(sep) > lo && pos >= 0; pos-- {
		if matchAt(runes, pos, sep) {
			return pos + len(sep)
		}
	}
	return -1
}

func matchAt(runes []rune, pos int, sep []rune) bool {
	if pos+len(sep) > len(runes) {
		return false
	}
	for i, r := range sep {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}

func chunkID(source string, position, start int) string {
	name := source + "#" + strconv.Itoa(position) + "@" + strconv.Itoa(start)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
