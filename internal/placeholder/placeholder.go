// Package placeholder shields markup (fenced code blocks, inline code spans,
// HTML tags) from the translation backend by swapping each occurrence for a
// numbered [PHn] marker and putting the originals back afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`\n]+`")
	reHTMLTag    = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
	reMarker     = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Hint is appended to an LLM prompt whenever the text carries markers.
const Hint = "Keep every [PHn] marker exactly as written; do not translate, move or drop it."

// Protected is text with its markup replaced by markers.
type Protected struct {
	Text    string
	markers []string
}

// Protect replaces markup in text with [PH0], [PH1], … in order of
// appearance. Fenced blocks are taken first so their contents are not
// matched again as inline code or tags.
func Protect(text string) Protected {
	p := Protected{}
	swap := func(m string) string {
		id := fmt.Sprintf("[PH%d]", len(p.markers))
		p.markers = append(p.markers, m)
		return id
	}
	text = reFencedCode.ReplaceAllStringFunc(text, swap)
	text = reInlineCode.ReplaceAllStringFunc(text, swap)
	text = reHTMLTag.ReplaceAllStringFunc(text, swap)
	p.Text = text
	return p
}

// Len is the number of markers created.
func (p Protected) Len() int { return len(p.markers) }

// Restore puts the originals back into translated. Markers with unknown
// indices are left untouched.
func (p Protected) Restore(translated string) string {
	if len(p.markers) == 0 {
		return translated
	}
	return reMarker.ReplaceAllStringFunc(translated, func(m string) string {
		idx, err := strconv.Atoi(reMarker.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(p.markers) {
			return m
		}
		return p.markers[idx]
	})
}

// Missing returns the indices of markers absent from translated.
func (p Protected) Missing(translated string) []int {
	seen := make(map[int]bool)
	for _, sub := range reMarker.FindAllStringSubmatch(translated, -1) {
		if idx, err := strconv.Atoi(sub[1]); err == nil {
			seen[idx] = true
		}
	}
	var missing []int
	for i := range p.markers {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
