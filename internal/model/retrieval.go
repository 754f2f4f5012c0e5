package model

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// RetrievalResult is ordered most-similar first.
type RetrievalResult []ScoredChunk

func (r RetrievalResult) Chunks() []Chunk {
	out := make([]Chunk, 0, len(r))
	for _, item := range r {
		out = append(out, item.Chunk)
	}
	return out
}
