// Package querybridge maps URL query parameters onto a list controller:
// reserved keys drive paging and sorting, everything else is a filter.
package querybridge

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"sw360-console/listing"
)

// Reserved are the keys that never become filters.
var Reserved = []string{listing.ParamPage, listing.ParamPageEntries, listing.ParamSort}

func IsReserved(key string) bool {
	return slices.Contains(Reserved, key)
}

// Filters extracts the filter map from values. The first non-blank value of
// each key is kept. When allowed is not empty only those keys pass.
func Filters(values url.Values, allowed []string) map[string]string {
	filters := map[string]string{}
	for key, vs := range values {
		if IsReserved(key) {
			continue
		}
		if len(allowed) > 0 && !slices.Contains(allowed, key) {
			continue
		}
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				filters[key] = v
				break
			}
		}
	}
	return filters
}

// Pageable reads page, page_entries and sort from values. Missing or invalid
// values fall back to defaults.
func Pageable(values url.Values, defaults listing.PageableQuery) listing.PageableQuery {
	q := defaults
	if n, err := strconv.Atoi(strings.TrimSpace(values.Get(listing.ParamPage))); err == nil && n >= 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(values.Get(listing.ParamPageEntries))); err == nil && n > 0 {
		q.PageEntries = n
	}
	if values.Has(listing.ParamSort) {
		raw := values.Get(listing.ParamSort)
		if field, dir, err := listing.ParseSort(raw); err == nil {
			if field == "" {
				q.Sort = ""
			} else {
				q.Sort = listing.SortToken(field, dir)
			}
		}
	}
	return q
}

// Encode is the inverse of Filters and Pageable. sort is always present so
// an unsorted link clears the sort instead of keeping it.
func Encode(q listing.PageableQuery, filters map[string]string) url.Values {
	values := listing.BuildParams(filters, q)
	values.Set(listing.ParamSort, q.Sort)
	return values
}

// Bridge feeds one controller from successive URL query strings.
type Bridge[T any] struct {
	controller *listing.Controller[T]
	defaults   listing.PageableQuery
	allowed    []string

	mu     sync.Mutex
	last   map[string]string
	synced bool
}

func New[T any](controller *listing.Controller[T], defaults listing.PageableQuery, allowed ...string) *Bridge[T] {
	return &Bridge[T]{
		controller: controller,
		defaults:   defaults,
		allowed:    allowed,
	}
}

// Sync applies values to the controller. A changed filter set replaces the
// filters and returns to the first page, keeping the current sort, with
// exactly one fetch. Otherwise paging and sort intents are applied together.
// It reports whether the controller state changed.
func (b *Bridge[T]) Sync(values url.Values) (bool, error) {
	filters := Filters(values, b.allowed)

	b.mu.Lock()
	changed := b.synced && !maps.Equal(filters, b.last)
	b.last = filters
	b.synced = true
	b.mu.Unlock()

	if changed {
		return true, b.controller.OnExternalFilterChange(filters)
	}
	return b.controller.Apply(Pageable(values, b.current()), filters)
}

// current is the controller's query with defaults for anything the URL
// leaves out. Page and page size come from defaults so a bare URL shows the
// first page; sort survives until the URL says otherwise.
func (b *Bridge[T]) current() listing.PageableQuery {
	q := b.defaults
	q.Sort = b.controller.State().Query.Sort
	return q
}
