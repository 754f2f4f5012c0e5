package model

import "unicode/utf8"

type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

func (d Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

type ChunkMeta struct {
	Source   string `json:"source"`
	Position int    `json:"position"`
	// Start and End are rune offsets into the document text, End exclusive.
	Start int `json:"start"`
	End   int `json:"end"`
}

type Chunk struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Meta    ChunkMeta `json:"meta"`
}
