package document

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var out []string
	for seg, err := range src.Segments() {
		if err != nil {
			t.Fatalf("Segments: %v", err)
		}
		out = append(out, seg)
	}
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenText_Paragraphs(t *testing.T) {
	path := writeFile(t, "in.txt", "First line.\nSecond line.\n\n\n  \nNext paragraph.  \r\n\nLast")

	src, err := OpenText(path)
	if err != nil {
		t.Fatalf("OpenText: %v", err)
	}

	got := collect(t, src)
	want := []string{"First line.\nSecond line.", "Next paragraph.", "Last"}
	if !slices.Equal(got, want) {
		t.Errorf("segments = %q, want %q", got, want)
	}
}

func TestOpenText_SingleUse(t *testing.T) {
	src, err := OpenText(writeFile(t, "in.txt", "a\n\nb"))
	if err != nil {
		t.Fatal(err)
	}
	collect(t, src)

	for _, err := range src.Segments() {
		if !errors.Is(err, ErrConsumed) {
			t.Errorf("second iteration err = %v, want ErrConsumed", err)
		}
	}
}

func TestOpenText_StopsEarly(t *testing.T) {
	src, err := OpenText(writeFile(t, "in.txt", "a\n\nb\n\nc"))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for seg, err := range src.Segments() {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, seg)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("segments = %q", got)
	}
}

func TestOpenText_Missing(t *testing.T) {
	if _, err := OpenText(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := OpenText(t.TempDir()); err == nil {
		t.Error("expected error for directory")
	}
}

func TestFromString(t *testing.T) {
	got := collect(t, FromString("one\n\ntwo\nthree\n"))
	want := []string{"one", "two\nthree"}
	if !slices.Equal(got, want) {
		t.Errorf("segments = %q, want %q", got, want)
	}

	if got := collect(t, FromString("   \n\n")); len(got) != 0 {
		t.Errorf("blank text yielded %q", got)
	}
}

func TestMarkdownBlocks(t *testing.T) {
	md := "# Title\n\nFirst *para* with `code`.\n\n```\nfmt.Println()\n```\n\nLast paragraph.\n"

	got := MarkdownBlocks([]byte(md))
	want := []string{"Title", "First para with code.", "fmt.Println()", "Last paragraph."}
	if !slices.Equal(got, want) {
		t.Errorf("blocks = %q, want %q", got, want)
	}
}

func TestOpen_ByExtension(t *testing.T) {
	src, err := Open(writeFile(t, "doc.md", "## Heading\n\nBody **bold** text.\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := collect(t, src)
	want := []string{"Heading", "Body bold text."}
	if !slices.Equal(got, want) {
		t.Errorf("segments = %q, want %q", got, want)
	}

	src, err = Open(writeFile(t, "doc.txt", "## Heading\n\nBody"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := collect(t, src); !slices.Equal(got, []string{"## Heading", "Body"}) {
		t.Errorf("text segments = %q", got)
	}
}

func TestTextRenderer(t *testing.T) {
	in := writeFile(t, "report.txt", "hello")
	out := filepath.Join(t.TempDir(), "out", "nested")

	path, err := TextRenderer{OutDir: out}.Render("привіт", "uk", in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := filepath.Join(out, "translated_uk.txt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "привіт" {
		t.Errorf("content = %q", data)
	}
}

func TestTextRenderer_DefaultsToSourceDir(t *testing.T) {
	in := writeFile(t, "notes.md", "x")

	path, err := TextRenderer{}.Render("y", "de", in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := filepath.Join(filepath.Dir(in), "translated_de.md"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	path, err = TextRenderer{}.Render("y", "de", filepath.Join(filepath.Dir(in), "noext"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".txt" {
		t.Errorf("path = %q, want .txt extension", path)
	}
}

func TestReadAll(t *testing.T) {
	got, err := ReadAll(FromString("a\n\n\n\nb\nc"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\n\nb\nc" {
		t.Errorf("ReadAll = %q", got)
	}

	src := FromString("x")
	collect(t, src)
	if _, err := ReadAll(src); !errors.Is(err, ErrConsumed) {
		t.Errorf("ReadAll on consumed source = %v, want ErrConsumed", err)
	}
}
