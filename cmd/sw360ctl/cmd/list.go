package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sw360-console/listing"
	"sw360-console/notify"
	"sw360-console/querybridge"
	"sw360-console/session"
	"sw360-console/sw360"
	"sw360-console/table"
)

type listOptions struct {
	Filters     []string
	Page        int
	PageEntries int
	Sort        string
	All         bool
	Output      string
}

func listCommand(app *cli) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:       "list <resource>",
		Short:     "list an SW360 resource page by page",
		Long:      "list fetches one page of a resource, or every page with --all.\nResources: " + strings.Join(sw360.ResourceNames, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: sw360.ResourceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := listers[args[0]]
			if !ok {
				return fmt.Errorf("unknown resource %q, expected one of %s", args[0], strings.Join(sw360.ResourceNames, ", "))
			}
			if opts.Output != "table" && opts.Output != "json" {
				return fmt.Errorf("unknown output %q, expected table or json", opts.Output)
			}
			values, err := opts.values()
			if err != nil {
				return err
			}
			cred, err := app.credential()
			if err != nil {
				return err
			}
			stderr := &syncWriter{w: cmd.ErrOrStderr()}
			return l.run(cmd.Context(), app, cred, values, opts, cmd.OutOrStdout(), stderr)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVarP(&opts.Filters, "filter", "f", nil, "filter as key=value, repeatable")
	fs.IntVar(&opts.Page, "page", 0, "zero-based page number")
	fs.IntVar(&opts.PageEntries, "page-entries", 0, "rows per page (default from config)")
	fs.StringVarP(&opts.Sort, "sort", "s", "", "sort as field,asc or field,desc")
	fs.BoolVarP(&opts.All, "all", "a", false, "walk every page")
	fs.StringVarP(&opts.Output, "output", "o", "table", "output format: table or json")
	return cmd
}

// values 는 플래그를 콘솔 URL 과 같은 쿼리 형태로 바꾼다.
func (o listOptions) values() (url.Values, error) {
	values := url.Values{}
	for _, f := range o.Filters {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", f)
		}
		if querybridge.IsReserved(key) {
			return nil, fmt.Errorf("%q is a paging parameter, use the flag instead", key)
		}
		values.Add(key, value)
	}
	if o.Page < 0 {
		return nil, listing.ErrInvalidPage
	}
	values.Set(listing.ParamPage, strconv.Itoa(o.Page))
	if o.PageEntries > 0 {
		values.Set(listing.ParamPageEntries, strconv.Itoa(o.PageEntries))
	}
	if o.Sort != "" {
		if _, _, err := listing.ParseSort(o.Sort); err != nil {
			return nil, err
		}
		values.Set(listing.ParamSort, o.Sort)
	}
	return values, nil
}

type lister interface {
	run(ctx context.Context, app *cli, cred session.Credential, values url.Values, opts listOptions, out, errOut io.Writer) error
}

type column[T any] struct {
	header string
	value  func(T) string
}

type resourceLister[T any] struct {
	res     sw360.Resource[T]
	columns []column[T]
}

// run 은 콘솔과 같은 컨트롤러로 조회한다. 처리 중 표시와 세션 종료는 stderr 로 알린다.
func (l resourceLister[T]) run(ctx context.Context, app *cli, cred session.Credential, values url.Values, opts listOptions, out, errOut io.Writer) error {
	defaults := listing.DefaultQuery()
	if app.cfg.Listing.PageEntries > 0 {
		defaults.PageEntries = app.cfg.Listing.PageEntries
	}

	guard := session.NewStatic(cred, session.StatusAuthenticated)
	guard.Events = session.NewEvents()
	guard.Events.Subscribe(func(ev session.Event) {
		fmt.Fprintf(errOut, "session ended: %s\n", ev.Reason)
	})

	var processing atomic.Bool
	var c *listing.Controller[T]
	c = listing.New[T](sw360.NewLister(app.client, l.res), guard, writerNotifier{w: errOut},
		listing.WithQuery(querybridge.Pageable(values, defaults)),
		listing.WithFilters(querybridge.Filters(values, nil)),
		listing.WithProcessingDelay(app.cfg.Listing.ProcessingDelay),
		listing.OnChange(func() {
			on := c.State().Processing
			if processing.Swap(on) != on && on {
				fmt.Fprintln(errOut, "Processing...")
			}
		}),
	)
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return err
	}
	var all []T
	for {
		if err := c.Wait(ctx); err != nil {
			return err
		}
		state := c.State()
		switch state.Outcome {
		case listing.OutcomeSettled:
		case listing.OutcomeUnauthenticated:
			return fmt.Errorf("SW360 rejected the access token: %w", listing.ErrUnauthenticated)
		case listing.OutcomeFailed:
			return state.Err
		default:
			return context.Canceled
		}

		if !opts.All {
			return l.print(out, opts.Output, state.Rows, state.Meta, state.Query)
		}
		all = append(all, state.Rows...)
		next := state.Query.Page + 1
		if len(state.Rows) == 0 || next >= state.Meta.TotalPages {
			meta := state.Meta
			meta.Number = 0
			return l.print(out, opts.Output, all, meta, listing.PageableQuery{PageEntries: max(len(all), 1)})
		}
		if err := c.SetPage(next); err != nil {
			return err
		}
	}
}

func (l resourceLister[T]) print(out io.Writer, format string, rows []T, meta listing.PaginationMeta, q listing.PageableQuery) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Rows []T                     `json:"rows"`
			Page listing.PaginationMeta `json:"page"`
		}{Rows: rows, Page: meta})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	headers := make([]string, 0, len(l.columns))
	for _, col := range l.columns {
		headers = append(headers, strings.ToUpper(col.header))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		cells := make([]string, 0, len(l.columns))
		for _, col := range l.columns {
			cells = append(cells, col.value(row))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	footer := table.BuildFooter(meta, q, nil, func(listing.PageableQuery) string { return "" })
	_, err := fmt.Fprintln(out, footer.Summary)
	return err
}

var listers = map[string]lister{
	sw360.Components.Name: resourceLister[sw360.Component]{res: sw360.Components, columns: []column[sw360.Component]{
		{"id", sw360.Component.Key},
		{"vendor", sw360.Component.VendorName},
		{"name", func(c sw360.Component) string { return c.Name }},
		{"main licenses", func(c sw360.Component) string { return strings.Join(c.MainLicenseIDs, ", ") }},
		{"type", func(c sw360.Component) string { return c.ComponentType }},
	}},
	sw360.Releases.Name: resourceLister[sw360.Release]{res: sw360.Releases, columns: []column[sw360.Release]{
		{"id", sw360.Release.Key},
		{"name", func(r sw360.Release) string { return r.Name }},
		{"version", func(r sw360.Release) string { return r.Version }},
		{"clearing state", func(r sw360.Release) string { return r.ClearingState }},
	}},
	sw360.Packages.Name: resourceLister[sw360.Package]{res: sw360.Packages, columns: []column[sw360.Package]{
		{"id", sw360.Package.Key},
		{"name", func(p sw360.Package) string { return p.Name }},
		{"version", func(p sw360.Package) string { return p.Version }},
		{"manager", func(p sw360.Package) string { return p.PackageManager }},
		{"purl", func(p sw360.Package) string { return p.PURL }},
	}},
	sw360.Projects.Name: resourceLister[sw360.Project]{res: sw360.Projects, columns: []column[sw360.Project]{
		{"id", sw360.Project.Key},
		{"name", func(p sw360.Project) string { return p.Name }},
		{"version", func(p sw360.Project) string { return p.Version }},
		{"state", func(p sw360.Project) string { return p.State }},
		{"clearing state", func(p sw360.Project) string { return p.ClearingState }},
	}},
	sw360.Vendors.Name: resourceLister[sw360.Vendor]{res: sw360.Vendors, columns: []column[sw360.Vendor]{
		{"id", sw360.Vendor.Key},
		{"full name", func(v sw360.Vendor) string { return v.FullName }},
		{"short name", func(v sw360.Vendor) string { return v.ShortName }},
		{"url", func(v sw360.Vendor) string { return v.URL }},
	}},
	sw360.Licenses.Name: resourceLister[sw360.License]{res: sw360.Licenses, columns: []column[sw360.License]{
		{"short name", func(l sw360.License) string { return l.ShortName }},
		{"full name", func(l sw360.License) string { return l.FullName }},
		{"checked", func(l sw360.License) string { return strconv.FormatBool(l.Checked) }},
	}},
}

func init() {
	for _, name := range sw360.ResourceNames {
		if _, ok := listers[name]; !ok {
			panic("sw360ctl: no lister for " + name)
		}
	}
}

type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Error(msg string)   { fmt.Fprintf(n.w, "error: %s\n", msg) }
func (n writerNotifier) Success(msg string) { fmt.Fprintln(n.w, msg) }

var _ notify.Notifier = writerNotifier{}

// syncWriter 는 컨트롤러 고루틴들이 함께 쓰는 stderr 를 보호한다.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
