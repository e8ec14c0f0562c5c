// Package vault implements the authoritative in-memory credential
// collection: CRUD and query operations, encrypted persistence through the
// storage adapter, and last-write-wins synchronization against the remote
// gateway.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/gateway"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/models"
	"github.com/wahaj/securevault/internal/session"
	"github.com/wahaj/securevault/internal/storage"
)

const (
	credentialsKey = "credentials"
	lastSyncKey    = "last_sync"
)

// Op classifies a change notification.
type Op string

const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReplace Op = "replace"
)

// Event describes a committed mutation. ID is empty for collection-wide
// changes (bulk import, wholesale replace, clear).
type Event struct {
	Op Op
	ID string
}

// Options wires a Vault's collaborators. Store, Session, and Log are
// required; Gateway may be nil for a purely local vault.
type Options struct {
	Store           storage.Store
	Gateway         gateway.Gateway
	Session         *session.Manager
	Log             logging.Logger
	Prefix          string
	Encrypt         bool
	DefaultCategory string
	Clock           func() time.Time
}

// Vault is the credential repository. All exported methods are safe for
// concurrent use; reads never block behind in-flight I/O.
type Vault struct {
	mu       sync.RWMutex
	records  map[string]models.Credential
	lastSync time.Time
	loading  int // depth counter: >0 while persistence or sync is in flight
	syncing  bool

	// saveMu serializes SaveToStorage so writes to the credentials key
	// never interleave.
	saveMu sync.Mutex

	subsMu sync.Mutex
	subs   []func(Event)

	store           storage.Store
	gateway         gateway.Gateway
	session         *session.Manager
	log             logging.Logger
	prefix          string
	encrypt         bool
	defaultCategory string
	clock           func() time.Time
}

// New constructs a Vault from options.
func New(opts Options) (*Vault, error) {
	if opts.Store == nil {
		return nil, errors.New("vault: storage is required")
	}
	if opts.Session == nil {
		return nil, errors.New("vault: session manager is required")
	}
	if opts.Log == nil {
		return nil, errors.New("vault: logger is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	category := opts.DefaultCategory
	if category == "" {
		category = "Uncategorized"
	}
	return &Vault{
		records:         make(map[string]models.Credential),
		store:           opts.Store,
		gateway:         opts.Gateway,
		session:         opts.Session,
		log:             opts.Log,
		prefix:          opts.Prefix,
		encrypt:         opts.Encrypt,
		defaultCategory: category,
		clock:           clock,
	}, nil
}

// Subscribe registers a callback invoked after every committed mutation.
// Callbacks run synchronously on the mutating goroutine and must be cheap.
func (v *Vault) Subscribe(fn func(Event)) {
	v.subsMu.Lock()
	defer v.subsMu.Unlock()
	v.subs = append(v.subs, fn)
}

func (v *Vault) notify(e Event) {
	v.subsMu.Lock()
	subs := append(make([]func(Event), 0, len(v.subs)), v.subs...)
	v.subsMu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

// Add creates a record from the draft, stores it, and persists the
// collection. The created record is returned even when persistence fails,
// since it remains in memory; the error tells the caller the disk copy is
// stale.
func (v *Vault) Add(ctx context.Context, d models.Draft) (models.Credential, error) {
	now := v.clock().UTC()

	v.mu.Lock()
	c := models.New(d, v.defaultCategory, now)
	for {
		if _, exists := v.records[c.ID]; !exists {
			break
		}
		// drafts may carry ids from imports; never overwrite silently
		d.ID = ""
		c = models.New(d, v.defaultCategory, now)
	}
	v.records[c.ID] = c
	v.mu.Unlock()

	v.notify(Event{Op: OpAdd, ID: c.ID})
	v.log.Debug(ctx, "credential added", "id", c.ID)
	return c.Clone(), v.SaveToStorage(ctx)
}

// ImportBulk creates records for every draft with the same defaulting as
// Add, then persists once at the end.
func (v *Vault) ImportBulk(ctx context.Context, drafts []models.Draft) ([]models.Credential, error) {
	now := v.clock().UTC()
	created := make([]models.Credential, 0, len(drafts))

	v.mu.Lock()
	for _, d := range drafts {
		c := models.New(d, v.defaultCategory, now)
		for {
			if _, exists := v.records[c.ID]; !exists {
				break
			}
			d.ID = ""
			c = models.New(d, v.defaultCategory, now)
		}
		v.records[c.ID] = c
		created = append(created, c.Clone())
	}
	v.mu.Unlock()

	v.notify(Event{Op: OpReplace})
	v.log.Info(ctx, "credentials imported", "count", len(created))
	return created, v.SaveToStorage(ctx)
}

// Update applies a partial update to the record with the given id.
func (v *Vault) Update(ctx context.Context, id string, p models.Patch) (models.Credential, error) {
	now := v.clock().UTC()

	v.mu.Lock()
	c, ok := v.records[id]
	if !ok {
		v.mu.Unlock()
		return models.Credential{}, fmt.Errorf("%w: credential %q", common.ErrNotFound, id)
	}
	changed := c.Apply(p, now)
	if changed {
		v.records[id] = c
	}
	v.mu.Unlock()

	if !changed {
		return c.Clone(), nil
	}
	v.notify(Event{Op: OpUpdate, ID: id})
	return c.Clone(), v.SaveToStorage(ctx)
}

// mutate runs fn against the stored record, persisting when fn reports a
// change.
func (v *Vault) mutate(ctx context.Context, id string, fn func(c *models.Credential, now time.Time) bool) (models.Credential, error) {
	now := v.clock().UTC()

	v.mu.Lock()
	c, ok := v.records[id]
	if !ok {
		v.mu.Unlock()
		return models.Credential{}, fmt.Errorf("%w: credential %q", common.ErrNotFound, id)
	}
	changed := fn(&c, now)
	if changed {
		v.records[id] = c
	}
	v.mu.Unlock()

	if !changed {
		return c.Clone(), nil
	}
	v.notify(Event{Op: OpUpdate, ID: id})
	return c.Clone(), v.SaveToStorage(ctx)
}

// ToggleFavorite flips the favorite flag of the record.
func (v *Vault) ToggleFavorite(ctx context.Context, id string) (models.Credential, error) {
	return v.mutate(ctx, id, func(c *models.Credential, now time.Time) bool {
		c.ToggleFavorite(now)
		return true
	})
}

// AddTag adds a tag; adding a present tag is a no-op.
func (v *Vault) AddTag(ctx context.Context, id, tag string) (models.Credential, error) {
	return v.mutate(ctx, id, func(c *models.Credential, now time.Time) bool {
		return c.AddTag(tag, now)
	})
}

// RemoveTag removes a tag; removing an absent tag is a no-op.
func (v *Vault) RemoveTag(ctx context.Context, id, tag string) (models.Credential, error) {
	return v.mutate(ctx, id, func(c *models.Credential, now time.Time) bool {
		return c.RemoveTag(tag, now)
	})
}

// SetCategory changes the record's category.
func (v *Vault) SetCategory(ctx context.Context, id, category string) (models.Credential, error) {
	return v.mutate(ctx, id, func(c *models.Credential, now time.Time) bool {
		return c.SetCategory(category, now)
	})
}

// Delete removes the record with the given id, reporting whether it existed.
// When authenticated and online the deletion is also sent to the remote,
// best effort: a failed remote delete does not undo the local one, it only
// means the record may reappear on a later sync.
func (v *Vault) Delete(ctx context.Context, id string) (bool, error) {
	v.mu.Lock()
	_, ok := v.records[id]
	if ok {
		delete(v.records, id)
	}
	v.mu.Unlock()

	if !ok {
		return false, nil
	}
	v.notify(Event{Op: OpDelete, ID: id})
	v.log.Debug(ctx, "credential deleted", "id", id)

	if v.gateway != nil && v.session.CanSync() {
		if _, err := v.gateway.Delete(ctx, id); err != nil {
			v.log.Warn(ctx, "remote delete failed", "id", id, "error", err)
		}
	}
	return true, v.SaveToStorage(ctx)
}

// ClearAll removes every record and persists the empty collection.
func (v *Vault) ClearAll(ctx context.Context) error {
	v.mu.Lock()
	v.records = make(map[string]models.Credential)
	v.mu.Unlock()

	v.notify(Event{Op: OpReplace})
	v.log.Info(ctx, "all credentials cleared")
	return v.SaveToStorage(ctx)
}

// Get returns a copy of the record with the given id.
func (v *Vault) Get(id string) (models.Credential, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.records[id]
	if !ok {
		return models.Credential{}, false
	}
	return c.Clone(), true
}

// Count returns the number of stored records.
func (v *Vault) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Loading reports whether a persistence or sync operation is in flight.
func (v *Vault) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading > 0
}

// LastSync returns the time of the last fully successful sync round-trip,
// or the zero time if none happened yet.
func (v *Vault) LastSync() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastSync
}

// Query narrows the collection: filters compose category → tag → term, and
// the result is sorted by title for deterministic display ordering.
type Query struct {
	Category string
	Tag      string
	Term     string
}

// Find returns copies of all records matching the query.
func (v *Vault) Find(q Query) []models.Credential {
	v.mu.RLock()
	out := make([]models.Credential, 0, len(v.records))
	for _, c := range v.records {
		if q.Category != "" && c.Category != q.Category {
			continue
		}
		if q.Tag != "" && !c.HasTag(q.Tag) {
			continue
		}
		if !c.MatchesSearch(q.Term) {
			continue
		}
		out = append(out, c.Clone())
	}
	v.mu.RUnlock()

	sortByTitle(out)
	return out
}

// List returns all records sorted by title.
func (v *Vault) List() []models.Credential { return v.Find(Query{}) }

// Search returns records matching the term (see models.MatchesSearch).
func (v *Vault) Search(term string) []models.Credential { return v.Find(Query{Term: term}) }

// FilterByCategory returns records in the given category.
func (v *Vault) FilterByCategory(category string) []models.Credential {
	return v.Find(Query{Category: category})
}

// FilterByTag returns records carrying the given tag.
func (v *Vault) FilterByTag(tag string) []models.Credential {
	return v.Find(Query{Tag: tag})
}

// Favorites returns all favorite records sorted by title.
func (v *Vault) Favorites() []models.Credential {
	all := v.Find(Query{})
	out := all[:0]
	for _, c := range all {
		if c.Favorite {
			out = append(out, c)
		}
	}
	return out
}

// Tags returns the sorted set of all tags in use.
func (v *Vault) Tags() []string {
	v.mu.RLock()
	set := map[string]struct{}{}
	for _, c := range v.records {
		for _, t := range c.Tags {
			set[t] = struct{}{}
		}
	}
	v.mu.RUnlock()

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ExportAll returns a plain snapshot of the whole collection sorted by
// title, for hand-off to export collaborators.
func (v *Vault) ExportAll() []models.Credential { return v.Find(Query{}) }

func sortByTitle(cs []models.Credential) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := strings.ToLower(cs[i].Title), strings.ToLower(cs[j].Title)
		if a != b {
			return a < b
		}
		return cs[i].ID < cs[j].ID
	})
}

func (v *Vault) setLoading(b bool) {
	v.mu.Lock()
	if b {
		v.loading++
	} else {
		v.loading--
	}
	v.mu.Unlock()
}

// SaveToStorage serializes the current collection, encrypts it per policy,
// and writes it together with the last-sync stamp. Concurrent calls are
// serialized; the last completed save reflects the collection state at the
// time it was issued.
func (v *Vault) SaveToStorage(ctx context.Context) error {
	v.saveMu.Lock()
	defer v.saveMu.Unlock()

	v.setLoading(true)
	defer v.setLoading(false)

	v.mu.RLock()
	snapshot := make([]models.Credential, 0, len(v.records))
	for _, c := range v.records {
		snapshot = append(snapshot, c.Clone())
	}
	lastSync := v.lastSync
	v.mu.RUnlock()
	sortByTitle(snapshot)

	write := func(st storage.Store) error {
		if err := storage.SaveObject(ctx, st, v.prefix+credentialsKey, snapshot, v.encrypt); err != nil {
			return err
		}
		if !lastSync.IsZero() {
			stamp := lastSync.UTC().Format(time.RFC3339Nano)
			if err := st.Save(ctx, v.prefix+lastSyncKey, []byte(stamp), false); err != nil {
				return err
			}
		}
		return nil
	}

	// snapshot and stamp commit together when the store supports it
	var err error
	if tx, ok := v.store.(storage.TxStore); ok {
		err = tx.WithTx(ctx, write)
	} else {
		err = write(v.store)
	}
	if err != nil {
		v.log.Error(ctx, "failed to save credentials", "error", err)
		return err
	}
	return nil
}

// LoadFromStorage reads, decrypts, and parses the persisted collection,
// replacing the in-memory state wholesale. On any failure the in-memory
// collection is left untouched and the error is returned; a missing blob
// simply means no prior data.
func (v *Vault) LoadFromStorage(ctx context.Context) error {
	v.setLoading(true)
	defer v.setLoading(false)

	snapshot, err := storage.LoadObject[[]models.Credential](ctx, v.store, v.prefix+credentialsKey, true)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			v.log.Info(ctx, "no stored credentials, starting fresh")
			return nil
		}
		// Decryption/parse failures surface to the caller; the current
		// collection is not clobbered and nothing is auto-cleared.
		v.log.Error(ctx, "failed to load credentials", "error", err)
		return err
	}

	records := make(map[string]models.Credential, len(snapshot))
	for _, c := range snapshot {
		records[c.ID] = c
	}

	var lastSync time.Time
	if raw, err := v.store.Load(ctx, v.prefix+lastSyncKey, false); err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, string(raw)); perr == nil {
			lastSync = t
		}
	} else if !errors.Is(err, common.ErrNotFound) {
		v.log.Warn(ctx, "failed to load sync stamp", "error", err)
	}

	v.mu.Lock()
	v.records = records
	v.lastSync = lastSync
	v.mu.Unlock()

	v.notify(Event{Op: OpReplace})
	v.log.Info(ctx, "credentials loaded", "count", len(records))
	return nil
}
