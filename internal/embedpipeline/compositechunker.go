package embedpipeline

import "strings"

var markdownExtensions = map[string]bool{
	".md": true, ".markdown": true, ".mdx": true,
}

// CompositeChunker dispatches to MarkdownChunker for markdown-family files
// (using their header hierarchy) and falls back to ParagraphChunker for
// everything else.
type CompositeChunker struct {
	markdown  *MarkdownChunker
	paragraph *ParagraphChunker
}

// NewCompositeChunker builds the default extension-dispatching Chunker.
func NewCompositeChunker() *CompositeChunker {
	return &CompositeChunker{
		markdown:  NewMarkdownChunker(),
		paragraph: NewParagraphChunker(),
	}
}

func (c *CompositeChunker) Chunk(parsed ParsedContent) ([]Chunk, error) {
	ext := strings.ToLower(parsed.Metadata["extension"])
	if markdownExtensions[ext] {
		return c.markdown.Chunk(parsed)
	}
	return c.paragraph.Chunk(parsed)
}
