package transcript

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestMergeOverlap(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		fragment string
		expected string
	}{
		{"empty existing", "", "hello world", "hello world"},
		{"empty fragment", "hello world", "", "hello world"},
		{"no overlap", "the quick brown", "fox jumps", "the quick brown fox jumps"},
		{"suffix overlap", "the quick brown fox", "brown fox jumps over", "the quick brown fox jumps over"},
		{"full repeat", "the quick brown fox", "the quick brown fox", "the quick brown fox"},
		{"contained", "the quick brown fox jumps", "brown fox", "the quick brown fox jumps"},
		{"case and punctuation", "We should meet Tuesday.", "tuesday, at noon", "We should meet Tuesday. at noon"},
		{"overlap inside fragment", "brown fox", "the quick brown fox jumps", "brown fox jumps"},
		{"single word mid-fragment ignored", "I saw the", "then the cat sat", "I saw the then the cat sat"},
		{"repeated short answer kept", "are you coming yes I think so ok", "yes", "are you coming yes I think so ok yes"},
		{"short answer still on screen", "did it work yes", "Yes.", "did it work yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeOverlap(tt.existing, tt.fragment)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOverlapMerger_ImplementsMerger(t *testing.T) {
	var m Merger = OverlapMerger{}
	got, err := m.Merge(context.Background(), "a b", "b c")
	if err != nil || got != "a b c" {
		t.Errorf("Expected 'a b c', got %q (%v)", got, err)
	}
}

// Random caption fragments never push the buffer past its cap, and the
// buffer always ends with the fragment's tail when the fragment is new.
func TestMergeFragment_BoundedUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"alpha", "beta", "gamma", "delta", "eps", "zeta", "eta", "theta"}

	for _, maxWords := range []int{1, 5, 17, 100} {
		tr := New(0, maxWords)
		for i := 0; i < 200; i++ {
			n := rng.Intn(30)
			words := make([]string, n)
			for j := range words {
				words[j] = vocab[rng.Intn(len(vocab))]
			}
			if err := tr.MergeFragment(context.Background(), OverlapMerger{}, strings.Join(words, " ")); err != nil {
				t.Fatalf("Unexpected merge error: %v", err)
			}
			if got := len(tr.BufferWords()); got > maxWords {
				t.Fatalf("max_words=%d: buffer grew to %d words", maxWords, got)
			}
		}
	}
}

func TestRollingBuffer_Replace(t *testing.T) {
	b := NewRollingBuffer(3)
	if !b.Replace("one two three four five") {
		t.Error("Expected change")
	}
	if fmt.Sprint(b.Words()) != "[three four five]" {
		t.Errorf("Expected last 3 words, got %v", b.Words())
	}
	if b.Replace("three   four five") {
		t.Error("Expected no change for identical words")
	}
	if b.MaxWords() != 3 || b.Len() != 3 {
		t.Errorf("Unexpected sizes: max=%d len=%d", b.MaxWords(), b.Len())
	}
}
