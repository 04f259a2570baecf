package validator

import (
	"testing"
)

const englishText = "This is a longer piece of text that should be detected as English."

func TestCheck(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		text    string
		lang    string
		wantErr bool
	}{
		{"empty target", "Some translated text here, long enough.", "", false},
		{"blank text", "   ", "en", false},
		{"short text", "Hi", "uk", false},
		{"english as english", englishText, "en", false},
		{"case insensitive", englishText, "EN", false},
		{"regional variant", englishText, "en-GB", false},
		{"mismatch", englishText, "uk", true},
		{"ukrainian", "Це є тестовий текст українською мовою для перевірки роботи валідатора.", "uk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.text, tt.lang)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%q, %q) error = %v, wantErr %v", tt.text, tt.lang, err, tt.wantErr)
			}
		})
	}
}

func TestSameBase(t *testing.T) {
	if !sameBase("pt", "pt-BR") {
		t.Error("pt should match pt-BR")
	}
	if sameBase("uk", "ru") {
		t.Error("uk must not match ru")
	}
	if !sameBase("xx-nonsense-tag-!!", "XX-NONSENSE-TAG-!!") {
		t.Error("unparseable tags fall back to case-insensitive equality")
	}
}
