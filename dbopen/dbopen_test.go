package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ccmark/dbopen"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk, busy int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1, fk)
	assert.Equal(t, 10_000, busy)
}

func TestOpen_MkdirAllAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "vocab.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(`CREATE TABLE t (k TEXT PRIMARY KEY)`))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO t (k) VALUES ('a')`)
	require.NoError(t, err)
}

func TestDSN(t *testing.T) {
	dsn := dbopen.DSN("data/v.db", dbopen.WithBusyTimeout(500))
	assert.True(t, strings.HasPrefix(dsn, "data/v.db?"))
	assert.Contains(t, dsn, url.QueryEscape("busy_timeout(500)"))
	assert.Contains(t, dsn, url.QueryEscape("journal_mode(WAL)"))

	ro := dbopen.DSN("data/v.db", dbopen.WithReadOnly())
	assert.True(t, strings.HasPrefix(ro, "file:data/v.db?"))
	assert.Contains(t, ro, "mode=ro")
}

func TestOpen_ReadOnlySeesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.db")
	rw, err := dbopen.Open(path, dbopen.WithSchema(`CREATE TABLE t (k TEXT PRIMARY KEY)`))
	require.NoError(t, err)
	defer rw.Close()

	ro, err := dbopen.Open(path, dbopen.WithReadOnly(), dbopen.WithMaxConns(1))
	require.NoError(t, err)
	defer ro.Close()

	_, err = rw.Exec(`INSERT INTO t (k) VALUES ('a')`)
	require.NoError(t, err)

	var n int
	require.NoError(t, ro.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)

	_, err = ro.Exec(`INSERT INTO t (k) VALUES ('b')`)
	assert.Error(t, err)
}

func TestRunTx_RollbackOnError(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE t (k TEXT PRIMARY KEY)`))
	errBoom := errors.New("boom")

	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (k) VALUES ('a')`); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Zero(t, n)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, dbopen.IsBusy(nil))
	assert.False(t, dbopen.IsBusy(errors.New("no such table")))
	assert.True(t, dbopen.IsBusy(errors.New("database is locked")))
	assert.True(t, dbopen.IsBusy(errors.New("exec: SQLITE_BUSY (5)")))
}
