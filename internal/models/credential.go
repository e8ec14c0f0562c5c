// Package models defines the credential record type and its derived views.
package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credential is a single stored login record. ID and CreatedAt are fixed at
// creation; every accepted mutation refreshes UpdatedAt, which is the
// tie-breaker for last-write-wins merging during sync.
type Credential struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Website   string    `json:"website"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes"`
	Category  string    `json:"category"`
	Favorite  bool      `json:"favorite"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the partial record shape accepted from collaborators (forms,
// OCR capture, file import). Missing string fields default to empty,
// a missing category defaults to the configured one, and zero timestamps
// default to the creation time.
type Draft struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Website   string    `json:"website"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes"`
	Category  string    `json:"category"`
	Favorite  bool      `json:"favorite"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Title    *string
	Website  *string
	Username *string
	Password *string
	Notes    *string
	Category *string
	Favorite *bool
	Tags     *[]string
}

// New builds a Credential from a draft, generating an id when the draft has
// none and applying defaultCategory when the draft's category is empty.
// Duplicate tags are dropped, first occurrence wins.
func New(d Draft, defaultCategory string, now time.Time) Credential {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	category := d.Category
	if category == "" {
		category = defaultCategory
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return Credential{
		ID:        id,
		Title:     d.Title,
		Website:   d.Website,
		Username:  d.Username,
		Password:  d.Password,
		Notes:     d.Notes,
		Category:  category,
		Favorite:  d.Favorite,
		Tags:      dedupeTags(d.Tags),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// touch advances UpdatedAt. The clock can deliver equal or earlier readings
// under coarse timer resolution, so the previous value is nudged forward to
// keep UpdatedAt strictly increasing across accepted mutations.
func (c *Credential) touch(now time.Time) {
	if !now.After(c.UpdatedAt) {
		now = c.UpdatedAt.Add(time.Nanosecond)
	}
	c.UpdatedAt = now
}

// Apply merges a patch into the record and refreshes UpdatedAt when at
// least one field actually changed. ID and CreatedAt are never modified.
// It reports whether the record was mutated.
func (c *Credential) Apply(p Patch, now time.Time) bool {
	changed := false

	setStr := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setStr(&c.Title, p.Title)
	setStr(&c.Website, p.Website)
	setStr(&c.Username, p.Username)
	setStr(&c.Password, p.Password)
	setStr(&c.Notes, p.Notes)
	setStr(&c.Category, p.Category)

	if p.Favorite != nil && c.Favorite != *p.Favorite {
		c.Favorite = *p.Favorite
		changed = true
	}
	if p.Tags != nil {
		tags := dedupeTags(*p.Tags)
		if !equalTags(c.Tags, tags) {
			c.Tags = tags
			changed = true
		}
	}

	if changed {
		c.touch(now)
	}
	return changed
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ToggleFavorite flips the favorite flag.
func (c *Credential) ToggleFavorite(now time.Time) {
	c.Favorite = !c.Favorite
	c.touch(now)
}

// AddTag appends a tag unless it is already present. Adding an existing tag
// is a no-op and leaves UpdatedAt untouched. Reports whether the tag was added.
func (c *Credential) AddTag(tag string, now time.Time) bool {
	for _, t := range c.Tags {
		if t == tag {
			return false
		}
	}
	c.Tags = append(c.Tags, tag)
	c.touch(now)
	return true
}

// RemoveTag removes a tag if present. Removing an absent tag is a no-op and
// leaves UpdatedAt untouched. Reports whether the tag was removed.
func (c *Credential) RemoveTag(tag string, now time.Time) bool {
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			c.touch(now)
			return true
		}
	}
	return false
}

// SetCategory changes the category. Setting the current value is a no-op.
func (c *Credential) SetCategory(category string, now time.Time) bool {
	if c.Category == category {
		return false
	}
	c.Category = category
	c.touch(now)
	return true
}

// HasTag reports whether the record carries the given tag.
func (c *Credential) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the record.
func (c Credential) Clone() Credential {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return out
}

// MatchesSearch reports whether term occurs (case-insensitively) in the
// title, website, username, notes, category, derived domain, or any tag.
// An empty term matches everything.
func (c *Credential) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)

	fields := []string{c.Title, c.Website, c.Username, c.Notes, c.Category, c.Domain()}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// multiPartSuffixes lists public suffixes that span two labels, so hosts
// under them keep three labels in Domain().
var multiPartSuffixes = map[string]struct{}{
	"co.uk": {}, "org.uk": {}, "gov.uk": {}, "ac.uk": {},
	"com.au": {}, "net.au": {}, "org.au": {},
	"co.nz": {}, "co.jp": {}, "co.in": {}, "co.za": {}, "co.kr": {},
	"com.br": {}, "com.mx": {}, "com.cn": {}, "com.tr": {}, "com.sg": {},
}

// Domain returns the best-effort hostname for the record's website:
// a scheme is assumed when missing, a leading "www." is stripped, and hosts
// under known multi-part public suffixes are reduced to their registrable
// three-label form. Parsing failures fall back to the raw website value.
func (c *Credential) Domain() string {
	if c.Website == "" {
		return ""
	}

	raw := c.Website
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return c.Website
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")

	labels := strings.Split(host, ".")
	if len(labels) > 3 {
		suffix := strings.Join(labels[len(labels)-2:], ".")
		if _, ok := multiPartSuffixes[suffix]; ok {
			host = strings.Join(labels[len(labels)-3:], ".")
		}
	}
	return host
}
