package district

import "strconv"

// CodeWidth is the minimum number of digits in a sequential code.
const CodeWidth = 6

// Code renders the 1-based ordinal n as a decimal string left-padded with
// zeros to CodeWidth digits. Ordinals above 999999 widen instead of wrapping.
func Code(n int) string {
	s := strconv.Itoa(n)
	if len(s) >= CodeWidth {
		return s
	}
	b := make([]byte, CodeWidth)
	pad := CodeWidth - len(s)
	for i := 0; i < pad; i++ {
		b[i] = '0'
	}
	copy(b[pad:], s)
	return string(b)
}
