package storage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/cryptox"
)

var dbSeq int

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", dbSeq)
	key := cryptox.DeriveKey([]byte("test-passphrase"), []byte("test-salt"))

	s, err := OpenSQLite(context.Background(), dsn, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoad_Plain(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("v"), false))
	got, err := s.Load(ctx, "k", false)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestSaveLoad_Encrypted(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	secret := []byte(`[{"id":"1","password":"hunter2"}]`)

	require.NoError(t, s.Save(ctx, "k", secret, true))

	// raw bytes on disk differ from the plaintext
	raw, err := s.Load(ctx, "k", false)
	require.NoError(t, err)
	require.NotEqual(t, secret, raw)
	require.NotContains(t, string(raw), "hunter2")

	got, err := s.Load(ctx, "k", true)
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestLoad_MissingKey(t *testing.T) {
	s := setupStore(t)
	_, err := s.Load(context.Background(), "absent", true)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoad_CorruptedValue(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("data"), true))

	// corrupt the stored blob behind the adapter's back
	_, err := s.db.ExecContext(ctx, `UPDATE kv SET value = ? WHERE key = 'k'`, []byte("garbage"))
	require.NoError(t, err)

	_, err = s.Load(ctx, "k", true)
	require.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestSave_OverwriteLastWins(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("first"), false))
	require.NoError(t, s.Save(ctx, "k", []byte("second"), true))

	got, err := s.Load(ctx, "k", true)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestRemove(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("v"), false))
	require.NoError(t, s.Remove(ctx, "k"))
	_, err := s.Load(ctx, "k", false)
	require.ErrorIs(t, err, common.ErrNotFound)

	// removing a missing key is not an error
	require.NoError(t, s.Remove(ctx, "k"))
}

func TestSaveLoadObject(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	type profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	in := profile{Name: "Jo", Email: "jo@example.com"}

	require.NoError(t, SaveObject(ctx, s, "profile", in, true))
	out, err := LoadObject[profile](ctx, s, "profile", true)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestLoadObject_MalformedJSON(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("{not json"), false))
	_, err := LoadObject[map[string]string](ctx, s, "k", false)
	require.ErrorIs(t, err, common.ErrStorageRead)
}

func TestWithTx_CommitsBothWrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(st Store) error {
		if err := st.Save(ctx, "a", []byte("1"), true); err != nil {
			return err
		}
		return st.Save(ctx, "b", []byte("2"), false)
	})
	require.NoError(t, err)

	got, err := s.Load(ctx, "a", true)
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	got, err = s.Load(ctx, "b", false)
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", []byte("old"), false))

	boom := fmt.Errorf("boom")
	err := s.WithTx(ctx, func(st Store) error {
		if err := st.Save(ctx, "a", []byte("new"), false); err != nil {
			return err
		}
		if err := st.Save(ctx, "b", []byte("2"), false); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// neither write survives the rollback
	got, err := s.Load(ctx, "a", false)
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)
	_, err = s.Load(ctx, "b", false)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestReopen_Persists(t *testing.T) {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", dbSeq)
	key := cryptox.DeriveKey([]byte("p"), []byte("s"))
	ctx := context.Background()

	// keep the shared in-memory db alive across store instances
	keeper, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, keeper.Ping())
	t.Cleanup(func() { _ = keeper.Close() })

	s1, err := OpenSQLite(ctx, dsn, key)
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, "k", []byte("v"), true))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(ctx, dsn, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.Load(ctx, "k", true)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}
