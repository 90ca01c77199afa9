package imaging

import (
	"sort"
	"strings"
)

// SortNatural sorts paths in place so that embedded digit runs compare by
// numeric value: page_2.png sorts before page_10.png.
func SortNatural(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return NaturalLess(paths[i], paths[j])
	})
}

// NaturalLess reports whether a orders before b under natural sort.
// Non-digit runs compare case-insensitively.
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, aNum, aRest := nextChunk(a)
		cb, bNum, bRest := nextChunk(b)

		switch {
		case aNum && bNum:
			if c := compareNumeric(ca, cb); c != 0 {
				return c < 0
			}
		case aNum != bNum:
			// Digits sort before letters, matching byte order.
			return aNum
		default:
			la, lb := strings.ToLower(ca), strings.ToLower(cb)
			if la != lb {
				return la < lb
			}
		}
		a, b = aRest, bRest
	}
	return len(a) < len(b)
}

// nextChunk splits off the leading run of digits or non-digits.
func nextChunk(s string) (chunk string, isNum bool, rest string) {
	isNum = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == isNum {
		i++
	}
	return s[:i], isNum, s[i:]
}

// compareNumeric compares two digit runs by value without overflow:
// strip leading zeros, then longer run wins, then byte order.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
