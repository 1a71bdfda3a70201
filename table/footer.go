package table

import (
	"fmt"

	"sw360-console/listing"
)

// Siblings is how many pages either side of the current one the footer lists.
const Siblings = 2

var DefaultPageSizes = []int{10, 25, 50, 100}

type PageLink struct {
	// Label is one-based for people; Page is the zero-based page it requests.
	Label    string
	Page     int
	Href     string
	Current  bool
	Ellipsis bool
}

type PageSizeOption struct {
	Size     int
	Href     string
	Selected bool
}

type Footer struct {
	From    int
	To      int
	Total   int
	Summary string

	Pages   []PageLink
	Prev    PageLink
	Next    PageLink
	HasPrev bool
	HasNext bool

	PageSizes []PageSizeOption
}

// BuildFooter lays out the pager for meta. link renders the URL for a query.
func BuildFooter(meta listing.PaginationMeta, q listing.PageableQuery, sizes []int, link func(listing.PageableQuery) string) Footer {
	f := Footer{Total: meta.TotalElements}

	totalPages := meta.TotalPages
	if totalPages <= 0 && meta.TotalElements > 0 {
		totalPages = (meta.TotalElements + q.PageEntries - 1) / q.PageEntries
	}

	if from := q.Page*q.PageEntries + 1; meta.TotalElements > 0 && from <= meta.TotalElements {
		f.From = from
		f.To = min(from+q.PageEntries-1, meta.TotalElements)
	}
	f.Summary = fmt.Sprintf("Showing %d to %d of %d entries", f.From, f.To, f.Total)

	at := func(page int) listing.PageableQuery {
		next := q
		next.Page = page
		return next
	}
	for _, page := range pageWindow(q.Page, totalPages, Siblings) {
		if page < 0 {
			f.Pages = append(f.Pages, PageLink{Label: "...", Ellipsis: true})
			continue
		}
		f.Pages = append(f.Pages, PageLink{
			Label:   fmt.Sprint(page + 1),
			Page:    page,
			Href:    link(at(page)),
			Current: page == q.Page,
		})
	}

	if q.Page > 0 && totalPages > 0 {
		prev := min(q.Page-1, totalPages-1)
		f.HasPrev = true
		f.Prev = PageLink{Label: "Previous", Page: prev, Href: link(at(prev))}
	}
	if q.Page+1 < totalPages {
		f.HasNext = true
		f.Next = PageLink{Label: "Next", Page: q.Page + 1, Href: link(at(q.Page + 1))}
	}

	if len(sizes) == 0 {
		sizes = DefaultPageSizes
	}
	for _, size := range sizes {
		// The page is kept when the size changes.
		next := q
		next.PageEntries = size
		f.PageSizes = append(f.PageSizes, PageSizeOption{
			Size:     size,
			Href:     link(next),
			Selected: size == q.PageEntries,
		})
	}
	return f
}

// pageWindow lists the zero-based pages to show. -1 marks a gap.
func pageWindow(current, total, siblings int) []int {
	if total <= 0 {
		return nil
	}
	last := total - 1
	current = max(0, min(current, last))

	pages := []int{0}
	start := max(1, current-siblings)
	end := min(last-1, current+siblings)
	if start > 1 {
		pages = append(pages, -1)
	}
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	if end < last-1 {
		pages = append(pages, -1)
	}
	if last > 0 {
		pages = append(pages, last)
	}
	return pages
}
