package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	s := ""
	if p := a.session.Profile(); p.Name != "" {
		s = p.Name + " "
	}
	s = s + string(a.session.State())
	return fmt.Sprintf("(%s)", s)
}

// Root restores any persisted session, starts the background connectivity
// watcher and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to SecureVault CLI (type 'help' for commands)")

	a.session.Restore(ctx)
	if err := a.vault.LoadFromStorage(ctx); err != nil {
		fmt.Fprintf(a.out, "Warning: could not load stored credentials: %v\n", err)
	}

	go a.session.Watch(ctx, a.gateway.Ping, a.config.OnlineCheckInterval)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
