// Package canonical defines the total order over encoded byte strings that
// cord uses to canonicalize sets.
//
// The order is unsigned lexicographic comparison of the encodings themselves,
// never of the semantic values behind them. When one encoding is a prefix of
// another, the shorter orders first. The encoder sorts set elements by this
// order before emission; the decoder verifies strict ascension against it.
// Future map support must order keys the same way.
package canonical

import (
	"bytes"
	"slices"
)

// Compare compares two encoded byte strings.
//
// Returns:
//   - -1 if a orders before b
//   - 0 if a and b are byte-identical
//   - +1 if a orders after b
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Less reports whether a orders strictly before b.
func Less(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

// Sort sorts encoded byte strings in place into canonical order.
//
// The sort is not stable, which is immaterial: elements comparing equal are
// byte-identical and indistinguishable after emission.
func Sort(encoded [][]byte) {
	slices.SortFunc(encoded, Compare)
}

// Dedupe collapses byte-identical neighbors in a sorted slice of encodings.
//
// The input must already be in canonical order. Dedupe returns the collapsed
// slice, which shares the input's backing array, and the number of duplicates
// removed.
func Dedupe(sorted [][]byte) ([][]byte, int) {
	if len(sorted) < 2 {
		return sorted, 0
	}

	out := sorted[:1]
	for _, enc := range sorted[1:] {
		if bytes.Equal(enc, out[len(out)-1]) {
			continue
		}
		out = append(out, enc)
	}

	return out, len(sorted) - len(out)
}
