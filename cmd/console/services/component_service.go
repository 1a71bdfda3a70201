package services

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"sw360-console/session"
	"sw360-console/sw360"
)

// ComponentBackend is the part of the SW360 client the component pages use.
type ComponentBackend interface {
	Component(ctx context.Context, cred session.Credential, id string) (sw360.Component, error)
	ComponentReleases(ctx context.Context, cred session.Credential, id string) ([]sw360.Release, error)
	PatchComponent(ctx context.Context, cred session.Credential, id string, p *sw360.ComponentPatch) (sw360.Component, error)
	DeleteComponent(ctx context.Context, cred session.Credential, id string) error
}

type ComponentService struct {
	client ComponentBackend
}

func NewComponentService(client ComponentBackend) *ComponentService {
	return &ComponentService{client: client}
}

type ComponentDetail struct {
	Component sw360.Component
	Releases  []sw360.Release
}

// Detail loads a component and its releases in parallel.
func (s *ComponentService) Detail(ctx context.Context, cred session.Credential, id string) (ComponentDetail, error) {
	var detail ComponentDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.client.Component(gctx, cred, id)
		detail.Component = c
		return err
	})
	g.Go(func() error {
		rs, err := s.client.ComponentReleases(gctx, cred, id)
		detail.Releases = rs
		return err
	})
	if err := g.Wait(); err != nil {
		return ComponentDetail{}, err
	}
	if detail.Releases == nil {
		detail.Releases = []sw360.Release{}
	}
	return detail, nil
}

// ComponentForm is the editable part of a component as posted by the edit page.
type ComponentForm struct {
	Name          string `form:"name"`
	Description   string `form:"description"`
	ComponentType string `form:"component_type"`
	Homepage      string `form:"homepage"`
	MailingList   string `form:"mailing_list"`
	Wiki          string `form:"wiki"`
	Blog          string `form:"blog"`
	Categories    string `form:"categories"`
}

func FormFromComponent(c sw360.Component) ComponentForm {
	return ComponentForm{
		Name:          c.Name,
		Description:   c.Description,
		ComponentType: c.ComponentType,
		Homepage:      c.Homepage,
		MailingList:   c.MailingList,
		Wiki:          c.Wiki,
		Blog:          c.Blog,
		Categories:    strings.Join(c.Categories, ", "),
	}
}

// Apply copies the form onto c.
func (f ComponentForm) Apply(c sw360.Component) sw360.Component {
	c.Name = strings.TrimSpace(f.Name)
	c.Description = strings.TrimSpace(f.Description)
	c.ComponentType = strings.TrimSpace(f.ComponentType)
	c.Homepage = strings.TrimSpace(f.Homepage)
	c.MailingList = strings.TrimSpace(f.MailingList)
	c.Wiki = strings.TrimSpace(f.Wiki)
	c.Blog = strings.TrimSpace(f.Blog)
	c.Categories = splitList(f.Categories)
	return c
}

// Update sends only the fields the form changed. It reports false when
// nothing differs and no request was made.
func (s *ComponentService) Update(ctx context.Context, cred session.Credential, id string, form ComponentForm) (sw360.Component, bool, error) {
	before, err := s.client.Component(ctx, cred, id)
	if err != nil {
		return sw360.Component{}, false, err
	}
	patch := sw360.DiffComponent(before, form.Apply(before))
	if patch.IsEmpty() {
		return before, false, nil
	}
	after, err := s.client.PatchComponent(ctx, cred, id, patch)
	if err != nil {
		return sw360.Component{}, false, err
	}
	return after, true, nil
}

func (s *ComponentService) Delete(ctx context.Context, cred session.Credential, id string) error {
	return s.client.DeleteComponent(ctx, cred, id)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
