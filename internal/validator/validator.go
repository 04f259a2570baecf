// Package validator checks that a translated chunk is in the expected target
// language.
package validator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language
// detection. Shorter texts are accepted without validation.
const minValidationLength = 20

// Validator is safe for concurrent use; reuse the instance.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// NewWithDetector shares an existing detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// Check returns an error when text appears to be written in a language other
// than targetLang. Regional variants match their base language ("pt-BR"
// accepts Portuguese). Short, blank or ambiguous texts pass.
func (v *Validator) Check(text, targetLang string) error {
	text = strings.TrimSpace(text)
	if targetLang == "" || len([]rune(text)) < minValidationLength {
		return nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}

	if !sameBase(detected, targetLang) {
		return fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}
	return nil
}

func sameBase(a, b string) bool {
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}
