package document

import (
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

type markdownFile struct {
	path string
	used bool
}

// OpenMarkdown returns a source of the text blocks of a Markdown file:
// headings, paragraphs and code blocks, with inline markup removed.
func OpenMarkdown(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &markdownFile{path: path}, nil
}

func (s *markdownFile) Segments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.used {
			yield("", ErrConsumed)
			return
		}
		s.used = true

		data, err := os.ReadFile(s.path)
		if err != nil {
			yield("", fmt.Errorf("failed to read %s: %w", s.path, err))
			return
		}
		for _, block := range MarkdownBlocks(data) {
			if !yield(block, nil) {
				return
			}
		}
	}
}

// MarkdownBlocks parses md and returns the plain text of each block.
func MarkdownBlocks(md []byte) []string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)

	var (
		blocks []string
		buf    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			blocks = append(blocks, s)
		}
		buf.Reset()
	}

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				buf.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				buf.Write(n.Literal)
			}
		case *ast.Hardbreak:
			if entering {
				buf.WriteByte('\n')
			}
		case *ast.CodeBlock:
			if entering {
				flush()
				buf.Write(n.Literal)
				flush()
			}
		case *ast.Paragraph, *ast.Heading:
			if !entering {
				flush()
			}
		}
		return ast.GoToNext
	})
	flush()

	return blocks
}
