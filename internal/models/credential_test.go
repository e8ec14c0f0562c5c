package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCredential() Credential {
	return New(Draft{
		Title:    "Gmail",
		Website:  "mail.google.com",
		Username: "user@gmail.com",
		Password: "p",
	}, "Uncategorized", t0)
}

func TestNew_Defaults(t *testing.T) {
	c := newTestCredential()
	require.NotEmpty(t, c.ID)
	require.Equal(t, "Uncategorized", c.Category)
	require.Equal(t, t0, c.CreatedAt)
	require.Equal(t, t0, c.UpdatedAt)
	require.Empty(t, c.Tags)
}

func TestNew_KeepsProvidedIdentityAndTimes(t *testing.T) {
	created := t0.Add(-time.Hour)
	c := New(Draft{ID: "abc", Password: "p", CreatedAt: created}, "Default", t0)
	require.Equal(t, "abc", c.ID)
	require.Equal(t, created, c.CreatedAt)
	require.Equal(t, created, c.UpdatedAt)
}

func TestNew_UniqueIDs(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		c := New(Draft{Password: "p"}, "d", t0)
		_, dup := seen[c.ID]
		require.False(t, dup)
		seen[c.ID] = struct{}{}
	}
}

func TestNew_DedupesDraftTags(t *testing.T) {
	c := New(Draft{Password: "p", Tags: []string{"work", "bank", "work"}}, "d", t0)
	require.Equal(t, []string{"work", "bank"}, c.Tags)
}

func TestApply_RefreshesUpdatedAtOnlyOnChange(t *testing.T) {
	c := newTestCredential()

	title := "Google Mail"
	changed := c.Apply(Patch{Title: &title}, t0.Add(time.Minute))
	require.True(t, changed)
	require.Equal(t, "Google Mail", c.Title)
	require.Equal(t, t0.Add(time.Minute), c.UpdatedAt)
	require.Equal(t, t0, c.CreatedAt)

	// same value again: no-op
	changed = c.Apply(Patch{Title: &title}, t0.Add(2*time.Minute))
	require.False(t, changed)
	require.Equal(t, t0.Add(time.Minute), c.UpdatedAt)
}

func TestApply_MonotonicUnderStalledClock(t *testing.T) {
	c := newTestCredential()
	title := "a"
	require.True(t, c.Apply(Patch{Title: &title}, t0))
	first := c.UpdatedAt

	title2 := "b"
	require.True(t, c.Apply(Patch{Title: &title2}, t0))
	require.True(t, c.UpdatedAt.After(first))
}

func TestToggleFavorite(t *testing.T) {
	c := newTestCredential()
	c.ToggleFavorite(t0.Add(time.Second))
	require.True(t, c.Favorite)
	require.Equal(t, t0.Add(time.Second), c.UpdatedAt)
	c.ToggleFavorite(t0.Add(2 * time.Second))
	require.False(t, c.Favorite)
}

func TestAddTag_Idempotent(t *testing.T) {
	c := newTestCredential()

	require.True(t, c.AddTag("work", t0.Add(time.Second)))
	require.Equal(t, []string{"work"}, c.Tags)
	stamp := c.UpdatedAt

	require.False(t, c.AddTag("work", t0.Add(time.Minute)))
	require.Equal(t, []string{"work"}, c.Tags)
	require.Equal(t, stamp, c.UpdatedAt)
}

func TestRemoveTag_AbsentIsNoOp(t *testing.T) {
	c := newTestCredential()
	c.AddTag("work", t0.Add(time.Second))
	stamp := c.UpdatedAt

	require.False(t, c.RemoveTag("missing", t0.Add(time.Minute)))
	require.Equal(t, stamp, c.UpdatedAt)

	require.True(t, c.RemoveTag("work", t0.Add(time.Minute)))
	require.Empty(t, c.Tags)
	require.Equal(t, t0.Add(time.Minute), c.UpdatedAt)
}

func TestSetCategory(t *testing.T) {
	c := newTestCredential()
	require.True(t, c.SetCategory("Finance", t0.Add(time.Second)))
	require.Equal(t, "Finance", c.Category)

	stamp := c.UpdatedAt
	require.False(t, c.SetCategory("Finance", t0.Add(time.Minute)))
	require.Equal(t, stamp, c.UpdatedAt)
}

func TestClone_Independent(t *testing.T) {
	c := newTestCredential()
	c.AddTag("work", t0.Add(time.Second))

	cp := c.Clone()
	cp.Tags[0] = "mutated"
	cp.Title = "other"

	require.Equal(t, []string{"work"}, c.Tags)
	require.Equal(t, "Gmail", c.Title)
}

func TestMatchesSearch(t *testing.T) {
	c := newTestCredential()
	c.AddTag("mailbox", t0.Add(time.Second))

	tests := []struct {
		term string
		want bool
	}{
		{"", true},
		{"gmail", true},    // title
		{"GOOGLE", true},   // website / domain
		{"user@", true},    // username
		{"mailbox", true},  // tag
		{"uncateg", true},  // category
		{"fortress", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, c.MatchesSearch(tt.term), "term %q", tt.term)
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		website string
		want    string
	}{
		{"", ""},
		{"https://mail.google.com/inbox", "mail.google.com"},
		{"www.example.com", "example.com"},
		{"example.com", "example.com"},
		{"http://www.bbc.co.uk", "bbc.co.uk"},
		{"https://news.shop.amazon.co.uk/x", "amazon.co.uk"},
		{"accounts.bank.com.au", "bank.com.au"},
		{"login.portal.bank.com.au", "bank.com.au"},
		{"not a url at all %%", "not a url at all %%"},
	}
	for _, tt := range tests {
		c := Credential{Website: tt.website}
		require.Equal(t, tt.want, c.Domain(), "website %q", tt.website)
	}
}
