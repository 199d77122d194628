package sqldb

import (
	"context"
	"database/sql"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Source implements core.RowSource over one dedicated database/sql
// connection, so init statements and the query share a session.
type Source struct {
	dialect Dialect
	db      *sql.DB
	conn    *sql.Conn
	rows    *sql.Rows

	schema  *models.Schema
	columns []ColumnInfo
	scan    []interface{}
	dest    []interface{}

	total    int64
	hasTotal bool
	rowIndex int64
	closed   bool

	logger *zap.Logger
}

// Open connects with the dialect and starts the query.
func Open(ctx context.Context, d Dialect, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
	s := &Source{
		dialect: d,
		logger:  logger.WithContext(ctx).With(zap.String("component", d.Name+"_source")),
	}

	var err error
	s.db, s.conn, err = connect(ctx, d, params)
	if err != nil {
		return nil, err
	}

	if query.Count {
		countSQL := "SELECT count(*) FROM (" + query.SQL + ") q"
		if err := s.conn.QueryRowContext(ctx, countSQL).Scan(&s.total); err != nil {
			s.Close()
			return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "count query failed").
				WithDetail("query", countSQL)
		}
		s.hasTotal = true
	}

	s.rows, err = s.conn.QueryContext(ctx, query.SQL)
	if err != nil {
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "query rejected").
			WithDetail("query", query.SQL)
	}

	cts, err := s.rows.ColumnTypes()
	if err != nil {
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "failed to read result columns").
			WithDetail("query", query.SQL)
	}

	s.columns = make([]ColumnInfo, len(cts))
	cols := make([]models.Column, len(cts))
	for i, ct := range cts {
		info := ColumnInfo{Column: models.Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     true,
		}}
		if nullable, ok := ct.Nullable(); ok {
			info.Nullable = nullable
		}
		info.Precision, info.Scale, info.HasDecimal = ct.DecimalSize()
		if d.Kind != nil {
			info.Kind = d.Kind(info)
		}
		s.columns[i] = info
		cols[i] = info.Column
	}
	s.schema = models.NewSchema(cols...)

	s.scan = make([]interface{}, len(cols))
	s.dest = make([]interface{}, len(cols))
	for i := range s.scan {
		s.dest[i] = &s.scan[i]
	}

	s.logger.Debug("query started", zap.Int("columns", len(cols)))
	return s, nil
}

func connect(ctx context.Context, d Dialect, params core.ConnectionParams) (*sql.DB, *sql.Conn, error) {
	dsn, err := d.DSN(params)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection settings").
			WithDetail("driver", d.Name)
	}
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database handle").
			WithDetail("driver", d.Name)
	}
	db.SetMaxOpenConns(1)

	connectCtx := ctx
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	conn, err := db.Conn(connectCtx)
	if err == nil {
		err = conn.PingContext(connectCtx)
	}
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		db.Close()
		return nil, nil, core.WrapDriverError(ctx, err, errors.ErrorTypeConnection, "failed to connect").
			WithDetail("driver", d.Name).
			WithDetail("host", params.Host)
	}

	for _, stmt := range params.Init {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			db.Close()
			return nil, nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "init statement failed").
				WithDetail("query", stmt)
		}
	}
	return db, conn, nil
}

// Schema returns the result set schema
func (s *Source) Schema() *models.Schema { return s.schema }

// EstimatedRows returns the pre-counted row total when one was requested.
func (s *Source) EstimatedRows() (int64, bool) { return s.total, s.hasTotal }

// Next returns the next row or io.EOF.
func (s *Source) Next(ctx context.Context) (models.Row, error) {
	if s.closed {
		return models.Row{}, io.EOF
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return models.Row{}, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "result stream failed")
		}
		return models.Row{}, io.EOF
	}
	s.rowIndex++

	if err := s.rows.Scan(s.dest...); err != nil {
		return models.Row{}, errors.Wrap(err, errors.ErrorTypeConversion, "failed to scan row")
	}

	values := make([]models.Value, len(s.scan))
	for i, raw := range s.scan {
		v, err := s.dialect.Convert(s.columns[i], i, raw)
		if err != nil {
			return models.Row{}, errors.Annotate(err, errors.ErrorTypeConversion, nil)
		}
		values[i] = v
	}
	return models.Row{Schema: s.schema, Values: values}, nil
}

// Close releases rows, connection and handle
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.rows != nil {
		keep(s.rows.Close())
	}
	if s.conn != nil {
		keep(s.conn.Close())
	}
	if s.db != nil {
		keep(s.db.Close())
	}
	s.logger.Debug("source closed", zap.Int64("rows_read", s.rowIndex))
	return first
}

// Catalog runs the dialect's catalog query.
func Catalog(ctx context.Context, d Dialect, params core.ConnectionParams) ([]core.CatalogEntry, error) {
	if d.CatalogQuery == "" {
		return nil, errors.Newf(errors.ErrorTypeCapability, "driver %s does not support schema browsing", d.Name)
	}
	db, conn, err := connect(ctx, d, params)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	defer conn.Close()

	var args []interface{}
	if d.CatalogArgs != nil {
		args = d.CatalogArgs(params)
	}
	rows, err := conn.QueryContext(ctx, d.CatalogQuery, args...)
	if err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "catalog query failed")
	}
	defer rows.Close()

	var out []core.CatalogEntry
	for rows.Next() {
		var schema, table, column, typ sql.NullString
		if err := rows.Scan(&schema, &table, &column, &typ); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan catalog row")
		}
		out = append(out, core.CatalogEntry{
			Schema:   schema.String,
			Table:    table.String,
			Column:   column.String,
			DataType: typ.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "catalog query failed")
	}
	return out, nil
}
