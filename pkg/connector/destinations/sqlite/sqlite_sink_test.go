package sqlite

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

// open writes data to a file and opens it as a database.
func open(t *testing.T, data []byte) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM `+quoteIdent(table)).Scan(&n))
	return n
}

func TestSinkZeroAndOneRow(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasSink("sqlite"))
	schema, rows := testutil.IntRows("a", 5)
	tmp := t.TempDir()

	sink, err := New(core.Options{"temp_dir": tmp})
	require.NoError(t, err)
	db := open(t, testutil.RenderSink(t, sink, schema, nil, nil))
	assert.Equal(t, 0, count(t, db, "data"))

	sink, err = New(core.Options{"temp_dir": tmp, "table": "my table"})
	require.NoError(t, err)
	db = open(t, testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, 1, count(t, db, "my table"))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary databases are removed")
}

func TestSinkBatchesAndTypes(t *testing.T) {
	schema := testutil.AllKindsSchema()
	rows := testutil.Rows(schema, testutil.AllKindsRows())
	sink, err := New(core.Options{"batch_rows": "2"})
	require.NoError(t, err)
	db := open(t, testutil.RenderSink(t, sink, schema, rows, nil))

	assert.Equal(t, len(rows), count(t, db, "data"))

	var id int64
	var flag sql.NullInt64
	var ratio sql.NullString
	var name sql.NullString
	var payload []byte
	require.NoError(t, db.QueryRow(`SELECT id, flag, CAST(ratio AS TEXT), name, payload FROM data WHERE rowid = 1`).
		Scan(&id, &flag, &ratio, &name, &payload))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, int64(1), flag.Int64)
	assert.Equal(t, "-0.3", ratio.String)
	assert.Equal(t, "plain", name.String)
	assert.Equal(t, []byte{0, 255, 10}, payload)

	var nan string
	require.NoError(t, db.QueryRow(`SELECT ratio FROM data WHERE rowid = 3`).Scan(&nan))
	assert.Equal(t, "NaN", nan)

	cols, err := db.Query(`SELECT name FROM pragma_table_info('data') ORDER BY cid`)
	require.NoError(t, err)
	defer cols.Close()
	var names []string
	for cols.Next() {
		var n string
		require.NoError(t, cols.Scan(&n))
		names = append(names, n)
	}
	assert.Equal(t, []string{"id", "flag", "ratio", "name", "payload", "created", "local", "id_2"}, names)
}

func TestSinkDiscardRemovesTempFile(t *testing.T) {
	tmp := t.TempDir()
	schema, rows := testutil.IntRows("a", 1, 2, 3)
	sink, err := New(core.Options{"temp_dir": tmp})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Begin(ctx, schema, io.Discard))
	for _, row := range rows {
		require.NoError(t, sink.WriteRow(ctx, row))
	}
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, sink.(core.Discarder).Discard())
	entries, err = os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSinkEndWithCauseWritesNothing(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1)
	sink, err := New(core.Options{"temp_dir": t.TempDir()})
	require.NoError(t, err)
	out := testutil.RenderSink(t, sink, schema, rows, errors.New(errors.ErrorTypeQuery, "boom"))
	assert.Empty(t, out)
}

func TestColumnNames(t *testing.T) {
	schema := models.NewSchema(
		models.Column{Name: "ID"},
		models.Column{Name: "id"},
		models.Column{Name: ""},
	)
	assert.Equal(t, []string{"ID", "id_2", "column_3"}, columnNames(schema))
	assert.Equal(t, `INSERT INTO "t" ("a", "b""c") VALUES (?, ?)`, insertSQL("t", []string{"a", `b"c`}))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(core.Options{"batch_rows": "0"})
	assert.Error(t, err)
	_, err = New(core.Options{"table": " "})
	assert.Error(t, err)
}
