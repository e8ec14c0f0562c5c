// Package session tracks the authentication state machine that gates
// synchronization:
//
//	Unauthenticated → Authenticating → {Authenticated, OfflineMode}
//
// OfflineMode is entered by an explicit user skip or a failed login and is
// left only through a successful login. Logging out clears the cached
// identity but never touches credential records, which stay available
// offline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/storage"
)

// State is the authentication lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateOffline         State = "offline"
)

// ErrInvalidTransition is returned when a lifecycle call is made from a
// state it is not legal in.
var ErrInvalidTransition = errors.New("invalid auth state transition")

// Profile is the cached user identity from the auth collaborator.
type Profile struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// persisted is the snapshot written under <prefix>auth_state.
type persisted struct {
	State State  `json:"state"`
	Token string `json:"token,omitempty"`
}

const (
	authStateKey = "auth_state"
	userDataKey  = "user_data"
)

// Manager owns the session state. All methods are safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	state     State
	token     string
	profile   Profile
	reachable bool

	store   storage.Store
	prefix  string
	encrypt bool
	log     logging.Logger
	clock   func() time.Time
}

// NewManager builds a Manager persisting its cache through store under the
// given key prefix, encrypted per the storage policy.
func NewManager(store storage.Store, prefix string, encrypt bool, log logging.Logger) *Manager {
	return &Manager{
		state:     StateUnauthenticated,
		reachable: true,
		store:     store,
		prefix:    prefix,
		encrypt:   encrypt,
		log:       log,
		clock:     time.Now,
	}
}

// Restore loads the cached session from storage. A missing, undecryptable,
// or expired cache degrades to Unauthenticated with a warning; it is never
// fatal.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := storage.LoadObject[persisted](ctx, m.store, m.prefix+authStateKey, true)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			m.log.Warn(ctx, "discarding unreadable session cache", "error", err)
		}
		return
	}

	if p.State == StateAuthenticated && !tokenUsable(p.Token, m.clock()) {
		m.log.Info(ctx, "cached session token expired")
		return
	}

	switch p.State {
	case StateAuthenticated, StateOffline:
		m.state = p.State
		m.token = p.Token
	default:
		return
	}

	profile, err := storage.LoadObject[Profile](ctx, m.store, m.prefix+userDataKey, true)
	if err == nil {
		m.profile = profile
	} else if !errors.Is(err, common.ErrNotFound) {
		m.log.Warn(ctx, "discarding unreadable profile cache", "error", err)
	}
}

// tokenUsable reports whether token is still worth presenting. Tokens that
// are not JWTs (opaque session ids) are assumed usable; JWTs with an exp
// claim in the past are not.
func tokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(now)
}

// BeginLogin enters Authenticating. Legal from Unauthenticated and
// OfflineMode.
func (m *Manager) BeginLogin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUnauthenticated && m.state != StateOffline {
		return fmt.Errorf("%w: begin login from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateAuthenticating
	return nil
}

// CompleteLogin enters Authenticated with the given token and profile and
// persists the session cache.
func (m *Manager) CompleteLogin(ctx context.Context, token string, profile Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticating {
		return fmt.Errorf("%w: complete login from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateAuthenticated
	m.token = token
	m.profile = profile
	m.persistLocked(ctx)
	return nil
}

// FailLogin records a failed login attempt, landing in OfflineMode.
func (m *Manager) FailLogin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticating {
		return fmt.Errorf("%w: fail login from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateOffline
	m.token = ""
	m.persistLocked(ctx)
	return nil
}

// SkipLogin is the explicit user choice to work offline from the start.
func (m *Manager) SkipLogin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUnauthenticated {
		return fmt.Errorf("%w: skip login from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateOffline
	m.persistLocked(ctx)
	return nil
}

// Logout clears the cached identity and returns to Unauthenticated.
// Credential records are not touched.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return fmt.Errorf("%w: logout from %s", ErrInvalidTransition, m.state)
	}
	m.clearLocked(ctx)
	return nil
}

// Invalidate drops the session after the backend rejected our token
// (401-class response). Legal from any state; a no-op when already
// unauthenticated.
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUnauthenticated {
		return
	}
	m.log.Warn(ctx, "session invalidated by server")
	m.clearLocked(ctx)
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.state = StateUnauthenticated
	m.token = ""
	m.profile = Profile{}
	if err := m.store.Remove(ctx, m.prefix+authStateKey); err != nil {
		m.log.Warn(ctx, "failed to remove session cache", "error", err)
	}
	if err := m.store.Remove(ctx, m.prefix+userDataKey); err != nil {
		m.log.Warn(ctx, "failed to remove profile cache", "error", err)
	}
}

func (m *Manager) persistLocked(ctx context.Context) {
	p := persisted{State: m.state, Token: m.token}
	if err := storage.SaveObject(ctx, m.store, m.prefix+authStateKey, p, m.encrypt); err != nil {
		m.log.Warn(ctx, "failed to persist session cache", "error", err)
	}
	if err := storage.SaveObject(ctx, m.store, m.prefix+userDataKey, m.profile, m.encrypt); err != nil {
		m.log.Warn(ctx, "failed to persist profile cache", "error", err)
	}
}

// SetReachable records the latest connectivity probe result.
func (m *Manager) SetReachable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reachable = ok
}

// CanSync reports whether synchronization should be attempted:
// authenticated and the server reachable at last probe.
func (m *Manager) CanSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.reachable
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns the cached user identity.
func (m *Manager) Profile() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Token implements gateway.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Watch probes reachability every interval until ctx is done. Each probe is
// bounded by probeTimeout.
func (m *Manager) Watch(ctx context.Context, ping func(context.Context) error, interval time.Duration) {
	const probeTimeout = 3 * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := ping(probeCtx)
			cancel()
			m.SetReachable(err == nil)
		case <-ctx.Done():
			return
		}
	}
}
