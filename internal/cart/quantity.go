package cart

import "strings"

const (
	MinQuantity = 1
	MaxQuantity = 100
)

// ClampQuantity bounds q to [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// ParseQuantity reads the leading integer of raw the way a quantity input
// does: surrounding text is ignored, a missing number counts as 1, and the
// result is clamped.
func ParseQuantity(raw string) int {
	s := strings.TrimLeft(raw, " \t\r\n")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
		if n <= MaxQuantity {
			n = n*10 + int(r-'0')
		}
	}

	if digits == 0 {
		return MinQuantity
	}
	if neg {
		n = -n
	}
	return ClampQuantity(n)
}
