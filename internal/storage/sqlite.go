package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/cryptox"
	"github.com/wahaj/securevault/internal/dbx"
	"github.com/wahaj/securevault/internal/storage/migrations"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on top of a local SQLite database with a
// single kv table. Values flagged for encryption are sealed with AES-GCM
// under the key supplied at construction.
//
// Queries go through q, which is the database handle itself or, inside
// WithTx, a transaction.
type SQLiteStore struct {
	db  *sql.DB
	q   dbx.DBTX
	key []byte
}

// runMigrations applies the embedded goose migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (or creates) the database at dsn, applies migrations,
// and returns a store that encrypts flagged values under encryptionKey.
// The connection pool is capped at one connection, which serializes writes
// per key at the database level.
func OpenSQLite(ctx context.Context, dsn string, encryptionKey []byte) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{db: db, q: db, key: encryptionKey}, nil
}

// NewSQLiteStore wraps an existing database handle. Migrations must already
// have been applied.
func NewSQLiteStore(db *sql.DB, encryptionKey []byte) *SQLiteStore {
	return &SQLiteStore{db: db, q: db, key: encryptionKey}
}

// WithTx runs fn against a transactional view of the store. Every Save and
// Remove issued through the view commits atomically when fn returns nil, and
// rolls back otherwise.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(&SQLiteStore{db: s.db, q: tx, key: s.key})
	})
}

func (s *SQLiteStore) Save(ctx context.Context, key string, value []byte, encrypt bool) error {
	toStore := value
	if encrypt {
		sealed, err := cryptox.Encrypt(value, s.key)
		if err != nil {
			return fmt.Errorf("%w: encrypt %q: %v", common.ErrStorageWrite, key, err)
		}
		toStore = sealed
	}

	query := `INSERT INTO kv (key, value, encrypted)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			encrypted = excluded.encrypted,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
	if _, err := s.q.ExecContext(ctx, query, key, toStore, boolToInt(encrypt)); err != nil {
		return fmt.Errorf("%w: upsert %q: %v", common.ErrStorageWrite, key, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string, decrypt bool) ([]byte, error) {
	query := `SELECT value, encrypted FROM kv WHERE key = ?`
	row := s.q.QueryRowContext(ctx, query, key)

	var value []byte
	var encrypted int
	if err := row.Scan(&value, &encrypted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: key %q", common.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: select %q: %v", common.ErrStorageRead, key, err)
	}

	if encrypted == 0 || !decrypt {
		return value, nil
	}

	plain, err := cryptox.Decrypt(value, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", common.ErrDecryptionFailed, key, err)
	}
	return plain, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", common.ErrStorageWrite, key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
