package sw360

import (
	"encoding/json"
	"maps"
	"slices"
)

// fieldSet records explicitly set fields by their wire name.
type fieldSet map[string]any

func (f fieldSet) Fields() map[string]any { return maps.Clone(map[string]any(f)) }

// ComponentPatch builds a partial component update. Only fields a setter was
// called for are sent, so ids, links and audit fields are never written back.
type ComponentPatch struct {
	fields fieldSet
}

func NewComponentPatch() *ComponentPatch {
	return &ComponentPatch{fields: fieldSet{}}
}

func (p *ComponentPatch) Name(v string) *ComponentPatch { return p.set("name", v) }
func (p *ComponentPatch) Description(v string) *ComponentPatch {
	return p.set("description", v)
}
func (p *ComponentPatch) ComponentType(v string) *ComponentPatch {
	return p.set("componentType", v)
}
func (p *ComponentPatch) Homepage(v string) *ComponentPatch    { return p.set("homepage", v) }
func (p *ComponentPatch) MailingList(v string) *ComponentPatch { return p.set("mailinglist", v) }
func (p *ComponentPatch) Wiki(v string) *ComponentPatch        { return p.set("wiki", v) }
func (p *ComponentPatch) Blog(v string) *ComponentPatch        { return p.set("blog", v) }
func (p *ComponentPatch) Categories(v []string) *ComponentPatch {
	return p.set("categories", slices.Clone(v))
}

func (p *ComponentPatch) set(key string, v any) *ComponentPatch {
	p.fields[key] = v
	return p
}

func (p *ComponentPatch) Fields() map[string]any { return p.fields.Fields() }
func (p *ComponentPatch) IsEmpty() bool          { return len(p.fields) == 0 }

func (p *ComponentPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(p.fields))
}

// DiffComponent sets every editable field that differs between before and after.
func DiffComponent(before, after Component) *ComponentPatch {
	p := NewComponentPatch()
	if before.Name != after.Name {
		p.Name(after.Name)
	}
	if before.Description != after.Description {
		p.Description(after.Description)
	}
	if before.ComponentType != after.ComponentType {
		p.ComponentType(after.ComponentType)
	}
	if before.Homepage != after.Homepage {
		p.Homepage(after.Homepage)
	}
	if before.MailingList != after.MailingList {
		p.MailingList(after.MailingList)
	}
	if before.Wiki != after.Wiki {
		p.Wiki(after.Wiki)
	}
	if before.Blog != after.Blog {
		p.Blog(after.Blog)
	}
	if !slices.Equal(before.Categories, after.Categories) {
		p.Categories(after.Categories)
	}
	return p
}

// ProjectPatch builds a partial project update, see ComponentPatch.
type ProjectPatch struct {
	fields fieldSet
}

func NewProjectPatch() *ProjectPatch {
	return &ProjectPatch{fields: fieldSet{}}
}

func (p *ProjectPatch) Name(v string) *ProjectPatch         { return p.set("name", v) }
func (p *ProjectPatch) Version(v string) *ProjectPatch      { return p.set("version", v) }
func (p *ProjectPatch) Description(v string) *ProjectPatch  { return p.set("description", v) }
func (p *ProjectPatch) ProjectType(v string) *ProjectPatch  { return p.set("projectType", v) }
func (p *ProjectPatch) Visibility(v string) *ProjectPatch   { return p.set("visibility", v) }
func (p *ProjectPatch) State(v string) *ProjectPatch        { return p.set("state", v) }
func (p *ProjectPatch) BusinessUnit(v string) *ProjectPatch { return p.set("businessUnit", v) }

func (p *ProjectPatch) set(key string, v any) *ProjectPatch {
	p.fields[key] = v
	return p
}

func (p *ProjectPatch) Fields() map[string]any { return p.fields.Fields() }
func (p *ProjectPatch) IsEmpty() bool          { return len(p.fields) == 0 }

func (p *ProjectPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(p.fields))
}
