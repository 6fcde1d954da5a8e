package langdetect

import (
	"errors"
	"testing"
)

func TestDetectUndetectable(t *testing.T) {
	for _, text := range []string{"", "   ", "12345", "!!! ??? ...", "42 + 17 = 59"} {
		tag, err := Detect(text)
		if !errors.Is(err, ErrUndetectable) {
			t.Errorf("Detect(%q) error = %v, want ErrUndetectable", text, err)
		}
		if tag != "" {
			t.Errorf("Detect(%q) tag = %q, want empty", text, tag)
		}
	}
}

func TestDetectEnglish(t *testing.T) {
	text := "This is a fairly long sentence written in plain English so that the detector " +
		"has more than enough words to work with when it decides which language it is looking at."
	tag, err := Detect(text)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if tag != "en" {
		t.Errorf("Detect tag = %q, want en", tag)
	}
}
