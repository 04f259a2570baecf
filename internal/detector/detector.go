// Package detector identifies the language of a text with lingua-go.
package detector

import (
	"errors"
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
)

// Auto is the source language value that asks for detection.
const Auto = "auto"

// sampleRunes bounds how much of a document is fed to the detector.
const sampleRunes = 2000

var ErrUndetected = errors.New("could not detect source language")

// Detector is expensive to build; the lingua models are loaded on first use
// and shared afterwards.
type Detector struct {
	once      sync.Once
	languages []lingua.Language
	detector  lingua.LanguageDetector
}

// New returns a detector over languages, or over every supported language
// when none are given.
func New(languages ...lingua.Language) *Detector {
	return &Detector{languages: languages}
}

func (d *Detector) build() {
	d.once.Do(func() {
		b := lingua.NewLanguageDetectorBuilder()
		if len(d.languages) > 1 {
			d.detector = b.FromLanguages(d.languages...).Build()
			return
		}
		d.detector = b.FromAllLanguages().Build()
	})
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return lingua.Unknown, false
	}
	d.build()
	return d.detector.DetectLanguageOf(sample(text))
}

// DetectISO returns the lower-case ISO 639-1 code of text's language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Resolve returns lang unchanged unless it is empty or "auto", in which case
// the language of text is detected.
func (d *Detector) Resolve(text, lang string) (string, error) {
	if lang != "" && !strings.EqualFold(lang, Auto) {
		return lang, nil
	}
	code, ok := d.DetectISO(text)
	if !ok {
		return "", ErrUndetected
	}
	return code, nil
}

func sample(text string) string {
	n := 0
	for i := range text {
		if n == sampleRunes {
			return text[:i]
		}
		n++
	}
	return text
}
