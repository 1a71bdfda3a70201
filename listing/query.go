package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	ParamPage        = "page"
	ParamPageEntries = "page_entries"
	ParamSort        = "sort"

	DefaultPageEntries = 10
)

var (
	ErrInvalidPage     = errors.New("page must be zero or greater")
	ErrInvalidPageSize = errors.New("page_entries must be greater than zero")
	ErrInvalidSort     = errors.New("invalid sort token")
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// SortToken renders the single sort token the backend accepts, "field,dir".
func SortToken(field string, dir Direction) string {
	return field + "," + string(dir)
}

// ParseSort splits a "field,dir" token. An empty token means unsorted and
// returns no error.
func ParseSort(token string) (string, Direction, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", nil
	}
	field, rawDir, ok := strings.Cut(token, ",")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSort, token)
	}
	dir, ok := ParseDirection(rawDir)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSort, token)
	}
	return field, dir, nil
}

// PageableQuery is the page window of one list request. Page is zero-based
// in state, in URLs and on the wire.
type PageableQuery struct {
	Page        int    `json:"page"`
	PageEntries int    `json:"page_entries"`
	Sort        string `json:"sort,omitempty"`
}

func DefaultQuery() PageableQuery {
	return PageableQuery{Page: 0, PageEntries: DefaultPageEntries}
}

func (q PageableQuery) Validate() error {
	if q.Page < 0 {
		return ErrInvalidPage
	}
	if q.PageEntries <= 0 {
		return ErrInvalidPageSize
	}
	if _, _, err := ParseSort(q.Sort); err != nil {
		return err
	}
	return nil
}

// SortBy returns the active sort field and direction; ok is false when unsorted.
func (q PageableQuery) SortBy() (field string, dir Direction, ok bool) {
	field, dir, err := ParseSort(q.Sort)
	if err != nil || field == "" {
		return "", "", false
	}
	return field, dir, true
}

// Values renders the pageable part of a request. sort is omitted when empty.
func (q PageableQuery) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(q.Page))
	v.Set(ParamPageEntries, strconv.Itoa(q.PageEntries))
	if q.Sort != "" {
		v.Set(ParamSort, q.Sort)
	}
	return v
}

// BuildParams merges filters with the pageable query. Pageable keys win when
// a filter uses the same name.
func BuildParams(filters map[string]string, q PageableQuery) url.Values {
	params := url.Values{}
	for k, v := range filters {
		params.Set(k, v)
	}
	for k, vs := range q.Values() {
		params[k] = vs
	}
	return params
}
