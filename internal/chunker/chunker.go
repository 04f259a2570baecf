// Package chunker splits large texts into ordered, translatable chunks while
// preserving paragraph and sentence integrity where the size limit allows.
//
// Splitting is hierarchical: paragraphs are packed first, a paragraph that is
// too large on its own is packed by sentences, an oversized sentence by words,
// and an oversized word is cut into fixed-size rune windows. All four levels
// share one packing algorithm; a level only supplies its unit splitter and the
// separator used to re-join units inside a chunk.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is a contiguous, order-tagged fragment of the source text.
type Chunk struct {
	// Index is the position of the chunk in source order (0..N-1, dense).
	Index int    `json:"index"`
	Text  string `json:"text"`
	// Size is the length of Text in runes.
	Size  int    `json:"size"`
}

// Level is one boundary level of the hierarchy. Split breaks text into units
// at that level; Sep joins packed units back together.
type Level struct {
	Name  string
	Sep   string
	Split func(string) []string
}

// reParagraph matches one or more blank lines (lines holding only spaces or
// tabs count as blank).
var reParagraph = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)

// DefaultLevels is the paragraph → sentence → word order used by Split. The
// raw window fallback is implicit below the last level.
var DefaultLevels = []Level{
	{Name: "paragraph", Sep: "\n\n", Split: SplitParagraphs},
	{Name: "sentence", Sep: " ", Split: SplitSentences},
	{Name: "word", Sep: " ", Split: strings.Fields},
}

// Split breaks text into chunks of at most maxChunkSize runes using
// DefaultLevels. If the text already fits, a single chunk holding the text
// unchanged is returned. maxChunkSize ≤ 0 is treated as unlimited.
//
// Split is pure: identical inputs always yield identical chunk sequences.
func Split(text string, maxChunkSize int) []Chunk {
	return SplitLevels(text, maxChunkSize, DefaultLevels)
}

// SplitLevels is Split with a caller-supplied boundary hierarchy.
func SplitLevels(text string, maxChunkSize int, levels []Level) []Chunk {
	if maxChunkSize <= 0 || utf8.RuneCountInString(text) <= maxChunkSize {
		return []Chunk{{Index: 0, Text: text, Size: utf8.RuneCountInString(text)}}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	pieces := pack(text, maxChunkSize, levels)

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{Index: i, Text: p, Size: utf8.RuneCountInString(p)}
	}
	return chunks
}

// pack greedily accumulates the units of levels[0] into pieces no longer than
// max runes. A unit that alone exceeds max is packed one level finer; below
// the last level it is cut into rune windows.
func pack(text string, max int, levels []Level) []string {
	if len(levels) == 0 {
		return window(strings.TrimSpace(text), max)
	}
	level := levels[0]
	sepLen := utf8.RuneCountInString(level.Sep)

	var out []string
	var cur strings.Builder
	curSize := 0

	flush := func() {
		if curSize > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curSize = 0
		}
	}

	for _, unit := range level.Split(text) {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}
		size := utf8.RuneCountInString(unit)

		if size > max {
			flush()
			out = append(out, pack(unit, max, levels[1:])...)
			continue
		}

		switch {
		case curSize == 0:
			cur.WriteString(unit)
			curSize = size
		case curSize+sepLen+size <= max:
			cur.WriteString(level.Sep)
			cur.WriteString(unit)
			curSize += sepLen + size
		default:
			flush()
			cur.WriteString(unit)
			curSize = size
		}
	}
	flush()

	return out
}

// window cuts text into slices of exactly max runes; the last may be shorter.
func window(text string, max int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// SplitParagraphs splits text at blank lines.
func SplitParagraphs(text string) []string {
	return reParagraph.Split(text, -1)
}

// SplitSentences splits text after sentence-ending punctuation (. ! ?) that is
// followed by whitespace. The punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(runes[i+1]) {
			out = append(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
