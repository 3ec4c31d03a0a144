// Package utils holds small helpers shared across layers, mostly around
// parsing and bounding paginated query parameters.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// plain base-10 integer. No whitespace trimming is applied.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to the inclusive range [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageWindow converts 1-based page/pageSize into a query offset together
// with the total page count for the given row count.
func PageWindow(page, pageSize int, total int64) (offset, totalPages int) {
	offset = (page - 1) * pageSize
	totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	return
}
