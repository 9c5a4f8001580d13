package transcript

import (
	"context"
	"strings"
)

// Merger combines the current buffer text with a new fragment, removing the
// overlap between them. Implementations may call out to a remote model.
type Merger interface {
	Merge(ctx context.Context, existing, fragment string) (string, error)
}

// RollingBuffer holds the most recent maxWords words of a continuous text stream.
// Trimming always drops the oldest words. It is not synchronized; Transcript guards it.
type RollingBuffer struct {
	words    []string
	maxWords int
}

// NewRollingBuffer creates an empty buffer capped at maxWords
func NewRollingBuffer(maxWords int) *RollingBuffer {
	if maxWords < 1 {
		maxWords = 1
	}
	return &RollingBuffer{maxWords: maxWords}
}

// Replace sets the buffer to the merged text, keeping only the last maxWords words.
// It reports whether the content changed.
func (b *RollingBuffer) Replace(merged string) bool {
	words := strings.Fields(merged)
	if over := len(words) - b.maxWords; over > 0 {
		words = words[over:]
	}
	if equalWords(words, b.words) {
		return false
	}
	b.words = words
	return true
}

// Words returns a copy of the buffered words
func (b *RollingBuffer) Words() []string {
	out := make([]string, len(b.words))
	copy(out, b.words)
	return out
}

// Text returns the buffered words joined by single spaces
func (b *RollingBuffer) Text() string {
	return strings.Join(b.words, " ")
}

// Len returns the number of buffered words
func (b *RollingBuffer) Len() int {
	return len(b.words)
}

// MaxWords returns the buffer cap
func (b *RollingBuffer) MaxWords() int {
	return b.maxWords
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
