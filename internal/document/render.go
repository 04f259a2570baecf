package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// Renderer persists a translated document and returns where it went.
type Renderer interface {
	Render(text, targetLang, originalPath string) (string, error)
}

// TextRenderer writes translated_<lang><ext> into OutDir, or next to the
// original when OutDir is empty.
type TextRenderer struct {
	OutDir string
}

func (r TextRenderer) Render(text, targetLang, originalPath string) (string, error) {
	ext := filepath.Ext(originalPath)
	if ext == "" {
		ext = ".txt"
	}

	dir := r.OutDir
	if dir == "" {
		dir = filepath.Dir(originalPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("translated_%s%s", targetLang, ext))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return path, nil
}
