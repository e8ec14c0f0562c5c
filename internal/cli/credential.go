package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/wahaj/securevault/internal/models"
	"github.com/wahaj/securevault/internal/passgen"
	"github.com/wahaj/securevault/internal/vault"
)

// Add interactively collects the fields of a new credential and stores it.
// An empty password answer generates one with the configured length.
func (a *App) Add(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	if title == "" {
		fmt.Fprintln(a.out, "Title is required")
		return nil
	}

	website, err := getSimpleText(a.reader, "Enter website", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getSimpleText(a.reader, "Enter password (empty to generate)", a.out)
	if err != nil {
		return err
	}
	if password == "" {
		password, err = passgen.Generate(a.config.PasswordLength, passgen.DefaultOptions())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Generated password: %s\n", password)
	}

	category, err := getSimpleText(a.reader, "Enter category (empty for default)", a.out)
	if err != nil {
		return err
	}
	tags, err := GetTags(a.reader, a.out)
	if err != nil {
		return err
	}
	notes, err := GetMultiline(a.reader, "Enter notes", a.out)
	if err != nil {
		return err
	}

	c, err := a.vault.Add(ctx, models.Draft{
		Title:    title,
		Website:  website,
		Username: username,
		Password: password,
		Notes:    notes,
		Category: category,
		Tags:     tags,
	})
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Added %q (%s)\n", c.Title, c.ID)
	return nil
}

// List prints a one-line overview of every credential, sorted by title.
func (a *App) List(ctx context.Context) error {
	a.printOverview(a.vault.List())
	return nil
}

// Show prompts for an id and prints the full credential, password included.
// Secrets go to the terminal only, never through the logger.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter credential id", a.out)
	if err != nil {
		return err
	}

	c, ok := a.vault.Get(id)
	if !ok {
		fmt.Fprintf(a.out, "No credential with id %q\n", id)
		return nil
	}

	fmt.Fprintf(a.out, "Title:    %s\n", c.Title)
	fmt.Fprintf(a.out, "Website:  %s\n", c.Website)
	fmt.Fprintf(a.out, "Domain:   %s\n", c.Domain())
	fmt.Fprintf(a.out, "Username: %s\n", c.Username)
	fmt.Fprintf(a.out, "Password: %s\n", c.Password)
	fmt.Fprintf(a.out, "Category: %s\n", c.Category)
	if len(c.Tags) > 0 {
		fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(c.Tags, ", "))
	}
	if c.Notes != "" {
		fmt.Fprintf(a.out, "Notes:    %s\n", c.Notes)
	}
	if c.Favorite {
		fmt.Fprintln(a.out, "Favorite: yes")
	}
	fmt.Fprintf(a.out, "Updated:  %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Search prompts for an optional category, tag and term, applies them in
// that order and prints the matches.
func (a *App) Search(ctx context.Context) error {
	category, err := getSimpleText(a.reader, "Category filter (empty for any)", a.out)
	if err != nil {
		return err
	}
	tag, err := getSimpleText(a.reader, "Tag filter (empty for any)", a.out)
	if err != nil {
		return err
	}
	term, err := getSimpleText(a.reader, "Search term (empty for all)", a.out)
	if err != nil {
		return err
	}

	a.printOverview(a.vault.Find(vault.Query{Category: category, Tag: tag, Term: term}))
	return nil
}

// Update prompts for an id and new field values; empty answers keep the
// current value.
func (a *App) Update(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter credential id", a.out)
	if err != nil {
		return err
	}
	if _, ok := a.vault.Get(id); !ok {
		fmt.Fprintf(a.out, "No credential with id %q\n", id)
		return nil
	}

	var p models.Patch
	fields := []struct {
		prompt string
		dst    **string
	}{
		{"New title (empty to keep)", &p.Title},
		{"New website (empty to keep)", &p.Website},
		{"New username (empty to keep)", &p.Username},
		{"New password (empty to keep)", &p.Password},
		{"New category (empty to keep)", &p.Category},
	}
	for _, f := range fields {
		answer, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		if answer != "" {
			v := answer
			*f.dst = &v
		}
	}

	c, err := a.vault.Update(ctx, id, p)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Updated %q\n", c.Title)
	return nil
}

// Delete prompts for an id and removes the credential.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter credential id to delete", a.out)
	if err != nil {
		return err
	}

	removed, err := a.vault.Delete(ctx, id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}
	if !removed {
		fmt.Fprintf(a.out, "No credential with id %q\n", id)
		return nil
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// Tag prompts for an action (add/rm), an id and a tag name.
func (a *App) Tag(ctx context.Context) error {
	action, err := getSimpleText(a.reader, "add or rm?", a.out)
	if err != nil {
		return err
	}
	id, err := getSimpleText(a.reader, "Enter credential id", a.out)
	if err != nil {
		return err
	}
	tag, err := getSimpleText(a.reader, "Enter tag", a.out)
	if err != nil {
		return err
	}

	var c models.Credential
	switch action {
	case "add":
		c, err = a.vault.AddTag(ctx, id, tag)
	case "rm":
		c, err = a.vault.RemoveTag(ctx, id, tag)
	default:
		fmt.Fprintln(a.out, "Usage: tag, then answer 'add' or 'rm'")
		return nil
	}
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Tags on %q: %s\n", c.Title, strings.Join(c.Tags, ", "))
	return nil
}

// Fav toggles the favorite flag on a credential.
func (a *App) Fav(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter credential id", a.out)
	if err != nil {
		return err
	}
	c, err := a.vault.ToggleFavorite(ctx, id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}
	if c.Favorite {
		fmt.Fprintf(a.out, "%q marked as favorite\n", c.Title)
	} else {
		fmt.Fprintf(a.out, "%q is no longer a favorite\n", c.Title)
	}
	return nil
}

func (a *App) printOverview(cs []models.Credential) {
	if len(cs) == 0 {
		fmt.Fprintln(a.out, "No credentials")
		return
	}
	for _, c := range cs {
		star := " "
		if c.Favorite {
			star = "*"
		}
		fmt.Fprintf(a.out, "%s %s  %-24s %-20s %s\n", star, c.ID, c.Title, c.Username, c.Domain())
	}
	fmt.Fprintf(a.out, "%d credential(s)\n", len(cs))
}
