package handlers

import (
	"context"
	"html/template"
	"net/url"
	"strings"

	"sw360-console/cmd/console/workspace"
	"sw360-console/config"
	"sw360-console/listing"
	"sw360-console/notify"
	"sw360-console/querybridge"
	"sw360-console/session"
	"sw360-console/sw360"
	"sw360-console/table"
)

// FilterField is one advanced-search input of a list page.
type FilterField struct {
	Param string
	Label string
}

// Resource is a backend collection the console can list, as a page and as JSON.
type Resource interface {
	Name() string
	Title() string
	Fields() []FilterField
	NewScreen(client *sw360.Client, guard session.Guard, notifier notify.Notifier, cfg config.ListingConfig) workspace.Screen
	// List runs one fetch cycle for values and returns the settled state.
	List(ctx context.Context, client *sw360.Client, cred session.Credential, values url.Values, cfg config.ListingConfig) (ListResult, error)
}

// ListResult is a settled list in a form the JSON API can encode.
type ListResult struct {
	Rows    any
	Meta    listing.PaginationMeta
	Query   listing.PageableQuery
	Filters map[string]string
}

type resource[T any] struct {
	res    sw360.Resource[T]
	title  string
	fields []FilterField
	table  table.Table[T]
}

func (r resource[T]) Name() string          { return r.res.Name }
func (r resource[T]) Title() string         { return r.title }
func (r resource[T]) Fields() []FilterField { return r.fields }

func (r resource[T]) allowed() []string {
	out := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, f.Param)
	}
	return out
}

func (r resource[T]) NewScreen(client *sw360.Client, guard session.Guard, notifier notify.Notifier, cfg config.ListingConfig) workspace.Screen {
	defaults := defaultQuery(cfg)
	c := listing.New[T](sw360.NewLister(client, r.res), guard, notifier,
		listing.WithQuery(defaults),
		listing.WithProcessingDelay(cfg.ProcessingDelay),
	)
	b := querybridge.New(c, defaults, r.allowed()...)
	t := r.table
	t.PageSizes = cfg.PageSizes
	return workspace.NewListScreen(c, b, t)
}

func (r resource[T]) List(ctx context.Context, client *sw360.Client, cred session.Credential, values url.Values, cfg config.ListingConfig) (ListResult, error) {
	guard := session.NewStatic(cred, session.StatusAuthenticated)
	recorder := &notify.Recorder{}
	c := listing.New[T](sw360.NewLister(client, r.res), guard, recorder,
		listing.WithQuery(querybridge.Pageable(values, defaultQuery(cfg))),
		listing.WithFilters(querybridge.Filters(values, r.allowed())),
	)
	defer c.Close()
	if err := c.Start(ctx); err != nil {
		return ListResult{}, err
	}
	if err := c.Wait(ctx); err != nil {
		return ListResult{}, err
	}

	state := c.State()
	switch state.Outcome {
	case listing.OutcomeSettled:
		return ListResult{Rows: state.Rows, Meta: state.Meta, Query: state.Query, Filters: state.Filters}, nil
	case listing.OutcomeUnauthenticated:
		return ListResult{}, listing.ErrUnauthenticated
	case listing.OutcomeFailed:
		return ListResult{}, state.Err
	default:
		if err := ctx.Err(); err != nil {
			return ListResult{}, err
		}
		return ListResult{}, context.Canceled
	}
}

func defaultQuery(cfg config.ListingConfig) listing.PageableQuery {
	q := listing.DefaultQuery()
	if cfg.PageEntries > 0 {
		q.PageEntries = cfg.PageEntries
	}
	return q
}

// Catalog lists every resource in navigation order.
func Catalog() []Resource {
	return []Resource{
		componentsResource(),
		releasesResource(),
		packagesResource(),
		projectsResource(),
		vendorsResource(),
		licensesResource(),
	}
}

func componentsResource() Resource {
	return resource[sw360.Component]{
		res:   sw360.Components,
		title: "Components",
		fields: []FilterField{
			{Param: "name", Label: "Component Name"},
			{Param: "categories", Label: "Categories"},
			{Param: "type", Label: "Component Type"},
			{Param: "languages", Label: "Languages"},
			{Param: "vendors", Label: "Vendors"},
			{Param: "mainLicenses", Label: "Main Licenses"},
			{Param: "createdBy", Label: "Created By (Email)"},
		},
		table: table.Table[sw360.Component]{
			RowKey: sw360.Component.Key,
			Columns: []table.Column[sw360.Component]{
				{ID: "vendor", Header: "Vendor", Width: "20%", Cell: table.Text(sw360.Component.VendorName)},
				{ID: "name", Header: "Component Name", Sortable: true, Width: "30%", Cell: table.Link(
					func(c sw360.Component) string { return "/components/" + url.PathEscape(c.Key()) },
					func(c sw360.Component) string { return c.Name },
				)},
				{ID: "mainLicenses", Header: "Main Licenses", Cell: licenseLinks},
				{ID: "componentType", Header: "Component Type", Sortable: true, Width: "15%", Cell: table.Text(func(c sw360.Component) string { return c.ComponentType })},
				{ID: "action", Header: "Actions", Width: "10%", Hidden: table.HiddenForRestricted, Cell: componentActions},
			},
		},
	}
}

func releasesResource() Resource {
	return resource[sw360.Release]{
		res:   sw360.Releases,
		title: "Releases",
		fields: []FilterField{
			{Param: "name", Label: "Release Name"},
			{Param: "version", Label: "Version"},
			{Param: "clearingState", Label: "Clearing State"},
		},
		table: table.Table[sw360.Release]{
			RowKey: sw360.Release.Key,
			Columns: []table.Column[sw360.Release]{
				{ID: "name", Header: "Name", Sortable: true, Width: "35%", Cell: table.Text(func(r sw360.Release) string { return r.Name })},
				{ID: "version", Header: "Version", Sortable: true, Cell: table.Text(func(r sw360.Release) string { return r.Version })},
				{ID: "clearingState", Header: "Clearing State", Cell: table.Text(func(r sw360.Release) string { return r.ClearingState })},
				{ID: "mainlineState", Header: "Mainline State", Cell: table.Text(func(r sw360.Release) string { return r.MainlineState })},
			},
		},
	}
}

func packagesResource() Resource {
	return resource[sw360.Package]{
		res:   sw360.Packages,
		title: "Packages",
		fields: []FilterField{
			{Param: "name", Label: "Package Name"},
			{Param: "version", Label: "Version"},
			{Param: "packageManager", Label: "Package Manager"},
			{Param: "licenses", Label: "Licenses"},
			{Param: "purl", Label: "PURL"},
			{Param: "createdBy", Label: "Created By (Email)"},
		},
		table: table.Table[sw360.Package]{
			RowKey: sw360.Package.Key,
			Columns: []table.Column[sw360.Package]{
				{ID: "name", Header: "Package Name", Sortable: true, Width: "30%", Cell: table.Text(func(p sw360.Package) string { return p.Name })},
				{ID: "version", Header: "Version", Sortable: true, Cell: table.Text(func(p sw360.Package) string { return p.Version })},
				{ID: "packageManager", Header: "Package Manager", Sortable: true, Cell: table.Text(func(p sw360.Package) string { return p.PackageManager })},
				{ID: "licenseIds", Header: "Licenses", Cell: func(p sw360.Package) template.HTML { return joinLicenseLinks(p.LicenseIDs) }},
				{ID: "purl", Header: "PURL", Cell: table.Text(func(p sw360.Package) string { return p.PURL })},
			},
		},
	}
}

func projectsResource() Resource {
	return resource[sw360.Project]{
		res:   sw360.Projects,
		title: "Projects",
		fields: []FilterField{
			{Param: "name", Label: "Project Name"},
			{Param: "version", Label: "Version"},
			{Param: "type", Label: "Project Type"},
			{Param: "projectResponsible", Label: "Project Responsible (Email)"},
			{Param: "group", Label: "Group"},
			{Param: "state", Label: "State"},
			{Param: "clearingStatus", Label: "Clearing Status"},
			{Param: "tag", Label: "Tag"},
		},
		table: table.Table[sw360.Project]{
			RowKey: sw360.Project.Key,
			Columns: []table.Column[sw360.Project]{
				{ID: "name", Header: "Project Name", Sortable: true, Width: "30%", Cell: table.Text(func(p sw360.Project) string { return p.Name })},
				{ID: "version", Header: "Version", Sortable: true, Cell: table.Text(func(p sw360.Project) string { return p.Version })},
				{ID: "description", Header: "Description", Width: "30%", Cell: table.Text(func(p sw360.Project) string { return p.Description })},
				{ID: "state", Header: "Project State", Cell: table.Text(func(p sw360.Project) string { return p.State })},
				{ID: "clearingState", Header: "Clearing Status", Cell: table.Text(func(p sw360.Project) string { return p.ClearingState })},
			},
		},
	}
}

func vendorsResource() Resource {
	return resource[sw360.Vendor]{
		res:   sw360.Vendors,
		title: "Vendors",
		fields: []FilterField{
			{Param: "name", Label: "Vendor Name"},
		},
		table: table.Table[sw360.Vendor]{
			RowKey: sw360.Vendor.Key,
			Columns: []table.Column[sw360.Vendor]{
				{ID: "fullName", Header: "Full Name", Sortable: true, Width: "40%", Cell: table.Text(func(v sw360.Vendor) string { return v.FullName })},
				{ID: "shortName", Header: "Short Name", Sortable: true, Cell: table.Text(func(v sw360.Vendor) string { return v.ShortName })},
				{ID: "url", Header: "URL", Cell: table.Link(
					func(v sw360.Vendor) string { return v.URL },
					func(v sw360.Vendor) string { return v.URL },
				)},
			},
		},
	}
}

func licensesResource() Resource {
	return resource[sw360.License]{
		res:   sw360.Licenses,
		title: "Licenses",
		fields: []FilterField{
			{Param: "name", Label: "License Name"},
		},
		table: table.Table[sw360.License]{
			RowKey: sw360.License.Key,
			Columns: []table.Column[sw360.License]{
				{ID: "shortName", Header: "License Shortname", Sortable: true, Width: "30%", Cell: table.Text(func(l sw360.License) string { return l.ShortName })},
				{ID: "fullName", Header: "License Fullname", Sortable: true, Width: "50%", Cell: table.Text(func(l sw360.License) string { return l.FullName })},
				{ID: "checked", Header: "Is Checked", Cell: table.Text(func(l sw360.License) string {
					if l.Checked {
						return "yes"
					}
					return "no"
				})},
			},
		},
	}
}

func licenseLinks(c sw360.Component) template.HTML {
	return joinLicenseLinks(c.MainLicenseIDs)
}

func joinLicenseLinks(ids []string) template.HTML {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, `<a class="link" href="/licenses?name=`+template.HTMLEscapeString(url.QueryEscape(id))+`">`+
			template.HTMLEscapeString(id)+`</a>`)
	}
	return template.HTML(strings.Join(parts, ", "))
}

func componentActions(c sw360.Component) template.HTML {
	key := template.HTMLEscapeString(url.PathEscape(c.Key()))
	return template.HTML(`<span class="actions">` +
		`<a class="action-edit" href="/components/` + key + `/edit">Edit</a> ` +
		`<form class="action-delete" method="post" action="/components/` + key + `/delete">` +
		`<button type="submit">Delete</button></form></span>`)
}
