package service

import (
	"strconv"
	"strings"
)

// PageSize is the number of posts per listing page.
const PageSize = 10

// Page is one slice of a post listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"page"`
	NumPages    int   `json:"num_pages"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// parsePage validates the raw page parameter against the listing size.
// An empty parameter means the first page. The first page always exists,
// even for an empty listing.
func parsePage(raw string, total int64) (number, numPages int, ok bool) {
	numPages = int((total + PageSize - 1) / PageSize)
	if numPages == 0 {
		numPages = 1
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, numPages, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > numPages {
		return 0, numPages, false
	}
	return n, numPages, true
}
