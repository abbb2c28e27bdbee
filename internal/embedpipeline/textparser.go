package embedpipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions are the plain-text-ish formats TextParser handles
// directly. Anything else is UnsupportedType (spec.md §4.7 step 1); richer
// formats (PDF/DOCX/XLSX/PPTX) are a separate FileParser the caller can
// register instead (spec.md §1 non-goal).
var supportedExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".mdx": true,
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".json": true, ".yaml": true, ".yml": true,
	".html": true, ".css": true, ".sh": true,
}

// TextParser is the default FileParser: it reads a file's raw bytes as
// UTF-8 text, rejecting extensions it doesn't recognize.
type TextParser struct{}

// NewTextParser builds a TextParser.
func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) Parse(filePath string) (ParsedContent, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if !supportedExtensions[ext] {
		return ParsedContent{}, &UnsupportedTypeError{FilePath: filePath, Extension: ext}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return ParsedContent{}, err
	}

	return ParsedContent{
		Content: string(data),
		Metadata: map[string]string{
			"extension": ext,
			"fileName":  filepath.Base(filePath),
		},
	}, nil
}

// UnsupportedTypeError reports a file extension no registered FileParser
// handles (spec.md §4.7 step 1, §9 GLOSSARY "UnsupportedType").
type UnsupportedTypeError struct {
	FilePath  string
	Extension string
}

func (e *UnsupportedTypeError) Error() string {
	return "embedpipeline: unsupported file type " + e.Extension + " for " + e.FilePath
}
