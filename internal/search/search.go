// Package search keeps a full-text index of posts outside the relational
// store. Queries return post ids in index order plus the total number of
// matches; callers load the posts themselves.
package search

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Document is the indexed projection of a post.
type Document struct {
	ID        uint
	Body      string
	Timestamp time.Time
}

type Index interface {
	Add(ctx context.Context, doc Document) error
	Remove(ctx context.Context, id uint) error
	Query(ctx context.Context, q string, page, perPage int) ([]uint, int64, error)
}

// Disabled is used when no index is configured. Writes are dropped and every
// query matches nothing.
type Disabled struct{}

func (Disabled) Add(context.Context, Document) error { return nil }

func (Disabled) Remove(context.Context, uint) error { return nil }

func (Disabled) Query(context.Context, string, int, int) ([]uint, int64, error) {
	return nil, 0, nil
}

// Tokenize lower-cases text and splits it into unique runs of letters and
// digits, in order of first appearance.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
