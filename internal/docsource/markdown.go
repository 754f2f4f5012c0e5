package docsource

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownToText flattens markdown into plain text, one block per paragraph.
// Headings, paragraphs and list items become blank-line separated blocks so the
// chunker can cut between them.
func MarkdownToText(src []byte) string {
	reader := text.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)
	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = appendBlocks(blocks, node, src)
	}
	return strings.Join(blocks, "\n\n")
}

func appendBlocks(blocks []string, node ast.Node, src []byte) []string {
	switch n := node.(type) {
	case *ast.List:
		var items []string
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if txt := extractText(item, src); txt != "" {
				items = append(items, "- "+txt)
			}
		}
		if len(items) > 0 {
			blocks = append(blocks, strings.Join(items, "\n"))
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var sb strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			sb.Write(line.Value(src))
		}
		if code := strings.TrimSpace(sb.String()); code != "" {
			blocks = append(blocks, code)
		}
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		if txt := extractText(node, src); txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return blocks
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.List:
			if t != n && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
