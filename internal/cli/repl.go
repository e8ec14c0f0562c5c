package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Offline(ctx context.Context) error
	Logout(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Search(ctx context.Context) error
	Update(ctx context.Context) error
	Delete(ctx context.Context) error
	Tag(ctx context.Context) error
	Fav(ctx context.Context) error
	Import(ctx context.Context) error
	Export(ctx context.Context) error
	Sync(ctx context.Context) error
	GenPass(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the SecureVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help           — show available commands
//	  - login          — authenticate with an access token
//	  - offline        — continue without signing in
//	  - genpass        — generate a random password
//	  - exit | quit    — leave the program
//
//	With a vault open:
//	  - add            — add a credential (interactive prompts)
//	  - (l)ist         — list credentials
//	  - show           — show a single credential (interactive id prompt)
//	  - search         — search by term, category or tag
//	  - update         — change fields of a credential
//	  - delete         — delete a credential
//	  - tag            — add or remove a tag on a credential
//	  - fav            — toggle the favorite flag
//	  - import         — bulk-load credentials from a JSON file
//	  - export         — write all credentials to a JSON file
//	  - sync           — synchronize with the server
//	  - logout         — sign out (records stay available offline)
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, (l)ist, show, search, update, delete, tag, fav, import, export, sync, genpass, logout, exit")
			} else {
				printlnFn("Available commands: login, offline, add, (l)ist, show, search, update, delete, tag, fav, import, export, genpass, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "offline":
			_ = a.Offline(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "add":
			_ = a.Add(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			_ = a.Show(ctx)

		case "search":
			_ = a.Search(ctx)

		case "update":
			_ = a.Update(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "tag":
			_ = a.Tag(ctx)

		case "fav":
			_ = a.Fav(ctx)

		case "import":
			_ = a.Import(ctx)

		case "export":
			_ = a.Export(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "genpass":
			_ = a.GenPass(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
