package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wahaj/securevault/internal/models"
)

// Import bulk-loads credentials from a JSON file holding an array of
// credential drafts. The whole batch is stored with a single persistence
// write.
func (a *App) Import(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter path of the JSON file to import", a.out)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}

	var drafts []models.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		fmt.Fprintf(a.out, "Error: invalid import file: %v\n", err)
		return err
	}

	imported, err := a.vault.ImportBulk(ctx, drafts)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Imported %d credential(s)\n", len(imported))
	return nil
}

// Export writes every credential to a JSON file, sorted by title. The file
// contains plaintext passwords; the user is warned accordingly.
func (a *App) Export(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter path of the JSON file to write", a.out)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(a.vault.ExportAll(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Exported %d credential(s) to %s\n", a.vault.Count(), path)
	fmt.Fprintln(a.out, "Warning: the export contains plaintext passwords")
	return nil
}
