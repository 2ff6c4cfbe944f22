// Package collection implements the client-side list engine shared by the
// organization and chatbot views: filtering, pagination, debounced search and
// server-confirmed mutations over a fully fetched collection.
package collection

import (
	"fmt"
	"strings"
)

// Item is anything a list view can hold.
type Item interface {
	// Key uniquely identifies the item within its collection.
	Key() string
	// SearchFields are the values a search query is matched against.
	SearchFields() []string
	// IsActive reports the enabled flag used by the status filter.
	IsActive() bool
}

// StatusFilter narrows a list by the enabled flag.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ParseStatusFilter accepts all, active or inactive in any case.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case StatusAll, StatusActive, StatusInactive:
		return f, nil
	case "":
		return StatusAll, nil
	default:
		return "", fmt.Errorf("unknown status filter %q (want all, active or inactive)", s)
	}
}

// Next cycles all -> active -> inactive -> all.
func (f StatusFilter) Next() StatusFilter {
	switch f {
	case StatusAll:
		return StatusActive
	case StatusActive:
		return StatusInactive
	default:
		return StatusAll
	}
}

func (f StatusFilter) accepts(active bool) bool {
	switch f {
	case StatusActive:
		return active
	case StatusInactive:
		return !active
	default:
		return true
	}
}

// NormalizeQuery trims and lower-cases a raw search string.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Matches reports whether item passes both the search and the status filter.
// query must already be normalized.
func Matches(item Item, query string, status StatusFilter) bool {
	if !status.accepts(item.IsActive()) {
		return false
	}
	if query == "" {
		return true
	}
	for _, field := range item.SearchFields() {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Filter returns the items matching query and status, in their original order.
func Filter[T Item](items []T, query string, status StatusFilter) []T {
	query = NormalizeQuery(query)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Matches(it, query, status) {
			out = append(out, it)
		}
	}
	return out
}
