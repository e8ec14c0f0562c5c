package cli

import (
	"context"
	"fmt"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/session"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login prompts for an access token obtained from the account portal and a
// display name, then tries to authenticate.
//
// The token is verified against the backend with a ping before the session
// is completed. If the server is unreachable the session falls back to
// offline mode; stored credentials stay usable and sync is skipped until a
// later successful login.
func (a *App) Login(ctx context.Context) error {
	if err := a.session.BeginLogin(); err != nil {
		fmt.Fprintf(a.out, "Cannot log in right now: %v\n", err)
		return err
	}

	name, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		_ = a.session.FailLogin(ctx)
		return err
	}

	token, err := getSecret("Paste access token", a.out)
	if err != nil {
		_ = a.session.FailLogin(ctx)
		return err
	}
	defer common.WipeByteArray(token)

	if err := a.gateway.Ping(ctx); err != nil {
		fmt.Fprintln(a.out, "Server unavailable, continuing in offline mode")
		if failErr := a.session.FailLogin(ctx); failErr != nil {
			return failErr
		}
		return err
	}

	if err := a.session.CompleteLogin(ctx, string(token), session.Profile{Name: name}); err != nil {
		fmt.Fprintf(a.out, "Login unsuccessful: %v\n", err)
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Offline skips authentication and keeps working against local data only.
func (a *App) Offline(ctx context.Context) error {
	if err := a.session.SkipLogin(ctx); err != nil {
		fmt.Fprintf(a.out, "Cannot switch to offline mode: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Working offline; stored credentials remain available")
	return nil
}

// Logout clears the cached identity and token. Credential records are kept
// so the vault stays usable offline.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
