// Package sqlite renders rows into a single table of a SQLite database
// file.
package sqlite

import (
	"context"
	"database/sql"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the sqlite sink.
const (
	OptionTable     = "table"
	OptionBatchRows = "batch_rows"
	OptionTempDir   = "temp_dir"
)

// Sink inserts rows into a temporary database and copies the finished
// file to the output in End. Inserts are committed every batch_rows rows.
type Sink struct {
	table     string
	batchRows int
	tempDir   string
	format    models.FormatOptions

	out     io.Writer
	path    string
	db      *sql.DB
	insert  *sql.Stmt
	tx      *sql.Tx
	stmt    *sql.Stmt
	args    []interface{}
	pending int
}

// New creates a sqlite sink.
func New(opts core.Options) (core.Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	s := &Sink{
		table:   opts.String(OptionTable, "data"),
		tempDir: opts.String(OptionTempDir, ""),
		format:  format,
	}
	if s.batchRows, err = opts.Int(OptionBatchRows, 1000); err != nil {
		return nil, err
	}
	if s.batchRows < 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "batch_rows must be positive").WithDetail("option", OptionBatchRows)
	}
	if strings.TrimSpace(s.table) == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "table name is empty").WithDetail("option", OptionTable)
	}
	return s, nil
}

// Capabilities implements core.Sink. Nothing reaches the output until the
// database file is complete.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeBuffered, Truncation: core.TruncationDiscard}
}

// Begin implements core.Sink.
func (s *Sink) Begin(ctx context.Context, schema *models.Schema, out io.Writer) error {
	s.out = out
	f, err := os.CreateTemp(s.tempDir, "sqlport-*.db")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create temporary database")
	}
	s.path = f.Name()
	if err := f.Close(); err != nil {
		s.cleanup()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create temporary database")
	}

	if s.db, err = sql.Open("sqlite", s.path); err != nil {
		s.cleanup()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to open temporary database")
	}
	s.db.SetMaxOpenConns(1)

	names := columnNames(schema)
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.table, names, schema)); err != nil {
		s.cleanup()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create table").WithDetail("table", s.table)
	}
	if s.insert, err = s.db.PrepareContext(ctx, insertSQL(s.table, names)); err != nil {
		s.cleanup()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to prepare insert").WithDetail("table", s.table)
	}
	s.args = make([]interface{}, len(names))
	logger.Debug("sqlite sink started", zap.String("temp_file", s.path), zap.String("table", s.table))
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(ctx context.Context, row models.Row) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to begin transaction")
		}
		s.tx = tx
		s.stmt = tx.StmtContext(ctx, s.insert)
	}
	for i, v := range row.Values {
		s.args[i] = s.bind(v)
	}
	if _, err := s.stmt.ExecContext(ctx, s.args...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to insert row").WithDetail("table", s.table)
	}
	s.pending++
	if s.pending >= s.batchRows {
		return s.commit()
	}
	return nil
}

func (s *Sink) bind(v models.Value) interface{} {
	switch v.Kind() {
	case models.KindNull:
		return nil
	case models.KindBool:
		b, _ := v.AsBool()
		if b {
			return int64(1)
		}
		return int64(0)
	case models.KindInteger:
		i, _ := v.AsInteger()
		return i
	case models.KindFloat:
		if f, _ := v.AsFloat(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case models.KindBytes:
		b, _ := v.AsBytes()
		if b == nil {
			b = []byte{}
		}
		return b
	}
	return models.DisplayText(v, s.format)
}

func (s *Sink) commit() error {
	if s.tx == nil {
		return nil
	}
	s.stmt.Close()
	err := s.tx.Commit()
	s.tx, s.stmt, s.pending = nil, nil, 0
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to commit batch").WithDetail("table", s.table)
	}
	return nil
}

// End implements core.Sink. For a complete stream the database file is
// copied to the output.
func (s *Sink) End(_ context.Context, cause error) error {
	if cause != nil {
		return s.Discard()
	}
	defer s.cleanup()
	if err := s.commit(); err != nil {
		return err
	}
	if err := s.closeDB(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to close temporary database")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to reopen temporary database")
	}
	defer f.Close()
	if _, err := io.Copy(s.out, f); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to copy database to output")
	}
	return nil
}

// Discard implements core.Discarder.
func (s *Sink) Discard() error {
	if s.tx != nil {
		s.stmt.Close()
		_ = s.tx.Rollback()
		s.tx, s.stmt = nil, nil
	}
	s.cleanup()
	return nil
}

func (s *Sink) closeDB() error {
	var first error
	if s.insert != nil {
		first = s.insert.Close()
		s.insert = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && first == nil {
			first = err
		}
		s.db = nil
	}
	return first
}

func (s *Sink) cleanup() {
	_ = s.closeDB()
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove temporary database", zap.String("temp_file", s.path), zap.Error(err))
		}
		s.path = ""
	}
}

// columnNames makes the column names unique ignoring case, since SQLite
// identifiers are case insensitive.
func columnNames(schema *models.Schema) []string {
	names := schema.UniqueNames()
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		candidate := name
		for n := 2; taken[strings.ToLower(candidate)]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		taken[strings.ToLower(candidate)] = true
		names[i] = candidate
	}
	return names
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnType(kind models.Kind) string {
	switch kind {
	case models.KindBool:
		return "BOOLEAN"
	case models.KindInteger:
		return "INTEGER"
	case models.KindFloat:
		return "REAL"
	case models.KindText:
		return "TEXT"
	case models.KindBytes:
		return "BLOB"
	case models.KindTimestamp:
		return "TIMESTAMP"
	}
	return ""
}

func createTableSQL(table string, names []string, schema *models.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(name))
		if t := columnType(schema.Columns[i].Kind); t != "" {
			b.WriteByte(' ')
			b.WriteString(t)
		}
	}
	b.WriteByte(')')
	return b.String()
}

func insertSQL(table string, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"
}
