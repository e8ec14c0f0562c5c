package cli

import (
	"bufio"
	"io"
	"os"

	"github.com/wahaj/securevault/internal/config"
	"github.com/wahaj/securevault/internal/gateway"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/session"
	"github.com/wahaj/securevault/internal/vault"
)

// App is the interactive SecureVault command-line client. It drives the
// vault, the session state machine and the remote gateway from a REPL.
type App struct {
	config  *config.Config
	vault   *vault.Vault
	session *session.Manager
	gateway gateway.Gateway
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

// NewApp assembles an App from already-wired dependencies. Input is read
// from stdin and output written to stdout.
func NewApp(cfg *config.Config, v *vault.Vault, s *session.Manager, g gateway.Gateway, log logging.Logger) *App {
	return &App{
		config:  cfg,
		vault:   v,
		session: s,
		gateway: g,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}
