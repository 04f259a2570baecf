// Package document reads input files as segments and writes translated
// output next to them.
package document

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

const maxLineSize = 1024 * 1024

// ErrConsumed is yielded when a source is iterated a second time.
var ErrConsumed = errors.New("segment source already consumed")

// Source yields the text segments of one document in order. Sources are
// single-use.
type Source interface {
	Segments() iter.Seq2[string, error]
}

// Open picks a source by file extension: Markdown for .md and .markdown,
// plain text otherwise.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return OpenMarkdown(path)
	default:
		return OpenText(path)
	}
}

type textFile struct {
	path string
	used bool
}

// OpenText returns a source of the blank-line separated paragraphs of a
// UTF-8 text file. The file is read lazily while iterating.
func OpenText(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &textFile{path: path}, nil
}

func (s *textFile) Segments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.used {
			yield("", ErrConsumed)
			return
		}
		s.used = true

		f, err := os.Open(s.path)
		if err != nil {
			yield("", fmt.Errorf("failed to open %s: %w", s.path, err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for para := range paragraphs(scanner) {
			if !yield(para, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("failed to read %s: %w", s.path, err))
		}
	}
}

type stringSource struct {
	text string
	used bool
}

// FromString returns a source over the paragraphs of text.
func FromString(text string) Source {
	return &stringSource{text: text}
}

func (s *stringSource) Segments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.used {
			yield("", ErrConsumed)
			return
		}
		s.used = true

		scanner := bufio.NewScanner(strings.NewReader(s.text))
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for para := range paragraphs(scanner) {
			if !yield(para, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

// paragraphs groups consecutive non-blank lines. Line breaks inside a
// paragraph are kept.
func paragraphs(scanner *bufio.Scanner) iter.Seq[string] {
	return func(yield func(string) bool) {
		var lines []string
		flush := func() bool {
			if len(lines) == 0 {
				return true
			}
			para := strings.Join(lines, "\n")
			lines = lines[:0]
			return yield(para)
		}

		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), " \t\r")
			if strings.TrimSpace(line) == "" {
				if !flush() {
					return
				}
				continue
			}
			lines = append(lines, line)
		}
		flush()
	}
}

// ReadAll drains src and joins its segments with blank lines.
func ReadAll(src Source) (string, error) {
	var segments []string
	for seg, err := range src.Segments() {
		if err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "\n\n"), nil
}
