package wordlist

import "unicode/utf8"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// Filter returns the words accepted by every filter.
func Filter(words []string, filters ...FilterFunc) []string {
	out := make([]string, 0, len(words))
next:
	for _, w := range words {
		for _, keep := range filters {
			if !keep(w) {
				continue next
			}
		}
		out = append(out, w)
	}
	return out
}

// MaxLength keeps words of at most n characters.
func MaxLength(n int) FilterFunc {
	return func(word string) bool {
		return utf8.RuneCountInString(word) <= n
	}
}

// LowerASCII keeps non-empty words made only of a-z.
func LowerASCII(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}
