// Package table renders a remote list as an HTML table. It never sorts or
// pages rows itself: every header, pager and page-size link is a URL carrying
// the intent back to the list controller.
package table

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"sw360-console/listing"
	"sw360-console/querybridge"
	"sw360-console/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Viewer is the user the table is rendered for.
type Viewer = session.User

type Column[T any] struct {
	ID     string
	Header string
	Cell   func(T) template.HTML
	// Sortable columns link to a server-side sort on ID.
	Sortable bool
	// Width is a relative CSS width such as "30%".
	Width  string
	Hidden func(Viewer) bool
}

type Table[T any] struct {
	Columns      []Column[T]
	RowKey       func(T) string
	PageSizes    []int
	EmptyMessage string
}

type View[T any] struct {
	Rows       []T
	Query      listing.PageableQuery
	Filters    map[string]string
	Meta       listing.PaginationMeta
	Processing bool
	Viewer     Viewer
	// BasePath is the path intent links point at, e.g. "/components".
	BasePath string
}

// FromState fills a view from a controller snapshot.
func FromState[T any](s listing.State[T], viewer Viewer, basePath string) View[T] {
	return View[T]{
		Rows:       s.Rows,
		Query:      s.Query,
		Filters:    s.Filters,
		Meta:       s.Meta,
		Processing: s.Processing,
		Viewer:     viewer,
		BasePath:   basePath,
	}
}

type HeaderCell struct {
	ID       string
	Label    string
	Width    string
	Sortable bool
	// Direction is the active sort on this column, empty when unsorted.
	Direction string
	Href      string
}

type Row struct {
	Key   string
	Cells []template.HTML
}

// Model is the template-facing form of one rendered table.
type Model struct {
	Headers      []HeaderCell
	Rows         []Row
	Processing   bool
	Empty        bool
	EmptyMessage string
	Footer       Footer
}

// HiddenForRestricted hides a column from restricted viewers.
func HiddenForRestricted(v Viewer) bool {
	return v.IsRestricted()
}

func (t Table[T]) Model(v View[T]) Model {
	link := func(q listing.PageableQuery) string {
		return v.BasePath + "?" + querybridge.Encode(q, v.Filters).Encode()
	}
	field, dir, sorted := v.Query.SortBy()

	m := Model{
		Processing:   v.Processing,
		Empty:        len(v.Rows) == 0 && !v.Processing,
		EmptyMessage: t.EmptyMessage,
		Footer:       BuildFooter(v.Meta, v.Query, t.PageSizes, link),
	}
	if m.EmptyMessage == "" {
		m.EmptyMessage = "No data available"
	}

	visible := make([]Column[T], 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.Hidden != nil && col.Hidden(v.Viewer) {
			continue
		}
		visible = append(visible, col)
	}

	for _, col := range visible {
		h := HeaderCell{ID: col.ID, Label: col.Header, Width: col.Width, Sortable: col.Sortable}
		if col.Sortable {
			if sorted && field == col.ID {
				h.Direction = string(dir)
			}
			next := v.Query
			next.Sort = nextSort(col.ID, h.Direction)
			h.Href = link(next)
		}
		m.Headers = append(m.Headers, h)
	}

	for _, item := range v.Rows {
		row := Row{Cells: make([]template.HTML, 0, len(visible))}
		if t.RowKey != nil {
			row.Key = t.RowKey(item)
		}
		for _, col := range visible {
			var cell template.HTML
			if col.Cell != nil {
				cell = col.Cell(item)
			}
			row.Cells = append(row.Cells, cell)
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// nextSort cycles a header through unsorted, ascending and descending.
func nextSort(field, current string) string {
	switch listing.Direction(current) {
	case listing.Asc:
		return listing.SortToken(field, listing.Desc)
	case listing.Desc:
		return ""
	default:
		return listing.SortToken(field, listing.Asc)
	}
}

func (t Table[T]) Render(w io.Writer, v View[T]) error {
	return RenderModel(w, t.Model(v))
}

func RenderModel(w io.Writer, m Model) error {
	return templates.ExecuteTemplate(w, "table.html", m)
}

// Text escapes the string a row yields.
func Text[T any](fn func(T) string) func(T) template.HTML {
	return func(item T) template.HTML {
		return template.HTML(template.HTMLEscapeString(fn(item)))
	}
}

// Link renders an anchor; both href and text are escaped.
func Link[T any](href, text func(T) string) func(T) template.HTML {
	return func(item T) template.HTML {
		h := href(item)
		if u, err := url.Parse(h); err != nil || (u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https") {
			h = "#"
		}
		return template.HTML(`<a class="link" href="` + template.HTMLEscapeString(h) + `">` +
			template.HTMLEscapeString(text(item)) + `</a>`)
	}
}
