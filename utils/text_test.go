package utils

import "testing"

func TestWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hello", 1},
		{"hello there friend", 3},
		{"  spaced   out\ttabs\nnewlines  ", 4},
	}
	for _, c := range cases {
		if got := WordCount(c.in); got != c.want {
			t.Fatalf("WordCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestWordCountNormalizesComposition(t *testing.T) {
	composed := "café time"
	decomposed := "café time"
	if WordCount(composed) != WordCount(decomposed) {
		t.Fatal("composed and decomposed forms should count the same")
	}
}

func TestTrimToWordLimit(t *testing.T) {
	if got := TrimToWordLimit("one two three four", 2); got != "one two" {
		t.Fatalf("trimmed = %q", got)
	}
	if got := TrimToWordLimit("short enough", 5); got != "short enough" {
		t.Fatalf("under limit changed: %q", got)
	}
	if got := TrimToWordLimit("  padded   input  ", 5); got != "padded   input" {
		t.Fatalf("padding handling: %q", got)
	}
}
