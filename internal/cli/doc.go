// Package cli provides the interactive SecureVault command-line client.
//
// It wires configuration, the encrypted local vault, the session state
// machine and the remote gateway into an interactive REPL that supports
// online and offline operation. Typical flow: restore the persisted session,
// load stored credentials, start a background connectivity watcher, and
// execute user commands.
//
// Key features:
//   - Login / Logout with offline fallback (records stay available offline)
//   - Add / update / delete credentials, tags, favorites
//   - List / show / search with category, tag and term filters
//   - JSON import and export
//   - Sync with the server (last-write-wins merge)
//   - Password generation with strength rating
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
