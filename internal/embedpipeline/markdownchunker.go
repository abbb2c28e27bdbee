package embedpipeline

import (
	"context"
	"strings"

	"github.com/okets/folder-mcp-core/internal/chunk"
)

// MarkdownChunker adapts the header-hierarchy-aware chunk.MarkdownChunker
// (which splits on section and frontmatter boundaries rather than blind
// paragraph runs) into the Chunker contract, converting its 1-indexed line
// ranges into the byte offsets embedpipeline.Chunk carries.
type MarkdownChunker struct {
	inner *chunk.MarkdownChunker
}

// NewMarkdownChunker builds a MarkdownChunker with the default token budget.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{inner: chunk.NewMarkdownChunker()}
}

func (c *MarkdownChunker) Chunk(parsed ParsedContent) ([]Chunk, error) {
	path := parsed.Metadata["fileName"]
	raw, err := c.inner.Chunk(context.Background(), &chunk.FileInput{
		Path:    path,
		Content: []byte(parsed.Content),
	})
	if err != nil {
		return nil, err
	}

	offsets := lineByteOffsets(parsed.Content)
	out := make([]Chunk, 0, len(raw))
	for _, rc := range raw {
		out = append(out, Chunk{
			Content:       rc.Content,
			StartPosition: lineOffset(offsets, rc.StartLine),
			EndPosition:   lineOffset(offsets, rc.EndLine+1),
		})
	}
	return out, nil
}

// lineByteOffsets returns the byte offset at which each 1-indexed line
// starts; index 0 is unused, so offsets[i] is the start of line i.
func lineByteOffsets(content string) []int {
	offsets := []int{0, 0}
	cursor := 0
	for _, r := range strings.SplitAfter(content, "\n") {
		cursor += len(r)
		offsets = append(offsets, cursor)
	}
	return offsets
}

func lineOffset(offsets []int, line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(offsets) {
		return offsets[len(offsets)-1]
	}
	return offsets[line]
}
