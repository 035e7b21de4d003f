// Package utils provides small, layer-agnostic helpers shared across the
// application. Nothing in here may depend on domain or transport types.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, falling back to def when s is
// empty or not a number. Query parameters like ?page= and ?page_size= go
// through this helper so malformed input degrades to defaults instead of
// erroring.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
