package sqlgen

import "strings"

// Escape doubles every single quote so s can sit inside a standard SQL string
// literal. No other character is touched.
func Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quote wraps s in single quotes after escaping it.
func quote(s string) string { return "'" + Escape(s) + "'" }
