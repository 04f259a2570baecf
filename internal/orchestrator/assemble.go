package orchestrator

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/valpere/doctran/internal/translator"
)

// ErrEmptyResult is wrapped into the KindEmpty error for blank output.
var ErrEmptyResult = errors.New("translation returned empty result")

// ErrorMarker is the placeholder emitted in place of a failed chunk.
func ErrorMarker(desc string) string {
	return fmt.Sprintf("[TRANSLATION ERROR: %s]", desc)
}

// Assemble orders results by chunk index and joins them with a single
// space. Failed chunks become error markers. Blank output is a KindEmpty
// error.
func Assemble(results []ChunkResult) (string, error) {
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, func(a, b ChunkResult) int { return cmp.Compare(a.Index, b.Index) })

	parts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if r.Err != nil {
			parts = append(parts, ErrorMarker(r.Err.Error()))
			continue
		}
		parts = append(parts, r.Text)
	}

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return "", translator.NewError(translator.KindEmpty, "assemble", ErrEmptyResult)
	}
	return text, nil
}
