package sw360

import (
	"sw360-console/listing"
)

// Resource names one backend collection and the key its rows are embedded under.
type Resource[T any] struct {
	Name        string
	Path        string
	EmbeddedKey string
}

var (
	Components = Resource[Component]{Name: "components", Path: "components", EmbeddedKey: "sw360:components"}
	Releases   = Resource[Release]{Name: "releases", Path: "releases", EmbeddedKey: "sw360:releases"}
	Packages   = Resource[Package]{Name: "packages", Path: "packages", EmbeddedKey: "sw360:packages"}
	Projects   = Resource[Project]{Name: "projects", Path: "projects", EmbeddedKey: "sw360:projects"}
	Vendors    = Resource[Vendor]{Name: "vendors", Path: "vendors", EmbeddedKey: "sw360:vendors"}
	Licenses   = Resource[License]{Name: "licenses", Path: "licenses", EmbeddedKey: "sw360:licenses"}
)

// ResourceNames lists every collection the console can browse.
var ResourceNames = []string{
	Components.Name,
	Releases.Name,
	Packages.Name,
	Projects.Name,
	Vendors.Name,
	Licenses.Name,
}

// ComponentReleases is the release collection of one component.
func ComponentReleases(componentID string) Resource[Release] {
	return Resource[Release]{
		Name:        "component-releases",
		Path:        "components/" + componentID + "/releases",
		EmbeddedKey: Releases.EmbeddedKey,
	}
}

// NewLister builds the fetcher a list controller uses for r.
func NewLister[T any](c *Client, r Resource[T]) *listing.HTTPFetcher[T] {
	return &listing.HTTPFetcher[T]{
		Client:      c.api,
		Path:        r.Path,
		EmbeddedKey: r.EmbeddedKey,
	}
}
