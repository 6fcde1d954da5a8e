// Package langdetect guesses the language a post was written in.
package langdetect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetectable is returned when the text has no letters of any known
// script to base a guess on.
var ErrUndetectable = errors.New("langdetect: no features in text")

// Detect returns the ISO 639-1 code of the language of text.
func Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetectable
	}
	info := whatlanggo.Detect(text)
	if info.Script == nil || info.Lang < 0 {
		return "", ErrUndetectable
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetectable
	}
	return code, nil
}
