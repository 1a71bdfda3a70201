package sw360

import (
	"strings"
	"time"

	"sw360-console/session"
)

type Link struct {
	Href string `json:"href"`
}

type Links struct {
	Self Link `json:"self"`
}

// identity is the last path segment of the self link, or id when the
// record carries no link.
func identity(links Links, id string) string {
	href := strings.TrimRight(links.Self.Href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 && i < len(href)-1 {
		return href[i+1:]
	}
	if href != "" {
		return href
	}
	return id
}

type Vendor struct {
	ID        string `json:"id,omitempty"`
	FullName  string `json:"fullName"`
	ShortName string `json:"shortName"`
	URL       string `json:"url,omitempty"`
	Links     Links  `json:"_links"`
}

func (v Vendor) Key() string { return identity(v.Links, v.ID) }

type Component struct {
	ID             string             `json:"id,omitempty"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	ComponentType  string             `json:"componentType,omitempty"`
	Homepage       string             `json:"homepage,omitempty"`
	MailingList    string             `json:"mailinglist,omitempty"`
	Wiki           string             `json:"wiki,omitempty"`
	Blog           string             `json:"blog,omitempty"`
	Categories     []string           `json:"categories,omitempty"`
	MainLicenseIDs []string           `json:"mainLicenseIds,omitempty"`
	DefaultVendor  *Vendor            `json:"defaultVendor,omitempty"`
	CreatedBy      string             `json:"createdBy,omitempty"`
	CreatedOn      string             `json:"createdOn,omitempty"`
	Links          Links              `json:"_links"`
	Embedded       *ComponentEmbedded `json:"_embedded,omitempty"`
}

type ComponentEmbedded struct {
	Releases      []Release `json:"sw360:releases,omitempty"`
	DefaultVendor *Vendor   `json:"defaultVendor,omitempty"`
}

func (c Component) Key() string { return identity(c.Links, c.ID) }

// VendorName prefers the inline default vendor over the embedded one.
func (c Component) VendorName() string {
	switch {
	case c.DefaultVendor != nil:
		return c.DefaultVendor.ShortName
	case c.Embedded != nil && c.Embedded.DefaultVendor != nil:
		return c.Embedded.DefaultVendor.ShortName
	}
	return ""
}

type Release struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	ClearingState string `json:"clearingState,omitempty"`
	MainlineState string `json:"mainlineState,omitempty"`
	CPEID         string `json:"cpeId,omitempty"`
	ReleaseDate   string `json:"releaseDate,omitempty"`
	Links         Links  `json:"_links"`
}

func (r Release) Key() string { return identity(r.Links, r.ID) }

type Package struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	PackageManager string   `json:"packageManager,omitempty"`
	PURL           string   `json:"purl,omitempty"`
	LicenseIDs     []string `json:"licenseIds,omitempty"`
	ReleaseID      string   `json:"releaseId,omitempty"`
	Links          Links    `json:"_links"`
}

func (p Package) Key() string { return identity(p.Links, p.ID) }

type Project struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Version       string `json:"version,omitempty"`
	Description   string `json:"description,omitempty"`
	ProjectType   string `json:"projectType,omitempty"`
	State         string `json:"state,omitempty"`
	ClearingState string `json:"clearingState,omitempty"`
	BusinessUnit  string `json:"businessUnit,omitempty"`
	Visibility    string `json:"visibility,omitempty"`
	Links         Links  `json:"_links"`
}

func (p Project) Key() string { return identity(p.Links, p.ID) }

type License struct {
	FullName  string `json:"fullName"`
	ShortName string `json:"shortName"`
	Checked   bool   `json:"checked"`
	Links     Links  `json:"_links"`
}

func (l License) Key() string { return identity(l.Links, l.ShortName) }

type OAuthClient struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Description  string `json:"description,omitempty"`
}

type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// Credential converts the token into what the session layer stores.
func (t AuthToken) Credential(now time.Time) session.Credential {
	cred := session.Credential{AccessToken: t.AccessToken, TokenType: t.TokenType}
	if t.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return cred
}

// Profile is the signed-in user as the backend describes them.
type Profile struct {
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	UserGroup  string `json:"userGroup"`
	Department string `json:"department,omitempty"`
}

func (p Profile) User() session.User {
	return session.User{Email: p.Email, Name: p.FullName, Group: p.UserGroup}
}
