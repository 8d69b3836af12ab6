package wordlist

import (
	"reflect"
	"testing"
)

func TestLowerASCII(t *testing.T) {
	if !LowerASCII("hello") {
		t.Fatalf("expected hello to pass")
	}
	for _, word := range []string{"", "résumé", "naïve", "don’t", "co-op", "Hello"} {
		if LowerASCII(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterAppliesEveryFilter(t *testing.T) {
	words := []string{"a", "tiny", "enormous", "café", "Big"}
	got := Filter(words, LowerASCII, MaxLength(4))
	want := []string{"a", "tiny"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := Filter(words, MaxLength(4)); len(got) != 4 {
		t.Fatalf("expected rune-based length filter to keep 4 words, got %v", got)
	}
}
