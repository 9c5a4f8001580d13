package stt

import "strings"

// UtteranceBuffer builds the running text of a phrase from streaming results.
// Finalized fragments are committed; an interim fragment is shown after them
// until the recognizer finalizes it.
type UtteranceBuffer struct {
	committed []string
}

// Add applies a result and returns the phrase text to display.
func (u *UtteranceBuffer) Add(r *TranscriptionResult) string {
	text := strings.TrimSpace(r.Text)
	if r.IsFinal {
		if text != "" {
			u.committed = append(u.committed, text)
		}
		return u.Text()
	}
	if text == "" {
		return u.Text()
	}
	return strings.Join(append(u.committed[:len(u.committed):len(u.committed)], text), " ")
}

// Text returns the committed text
func (u *UtteranceBuffer) Text() string {
	return strings.Join(u.committed, " ")
}

// Reset starts a new phrase
func (u *UtteranceBuffer) Reset() {
	u.committed = nil
}
