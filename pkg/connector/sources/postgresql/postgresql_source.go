// Package postgresql reads query results from PostgreSQL with pgx.
package postgresql

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Driver is the profile driver name.
const Driver = "postgresql"

// Source implements core.RowSource over a single pgx connection.
type Source struct {
	conn   *pgx.Conn
	rows   pgx.Rows
	schema *models.Schema
	oids   []uint32

	total    int64
	hasTotal bool
	rowIndex int64
	closed   bool

	logger *zap.Logger
}

// Open connects, runs the init statements and starts the query. The result
// schema is available as soon as Open returns.
func Open(ctx context.Context, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
	log := logger.WithContext(ctx).With(zap.String("component", "postgresql_source"))

	conn, err := connect(ctx, params)
	if err != nil {
		return nil, err
	}
	s := &Source{conn: conn, logger: log}

	if query.Count {
		countSQL := "SELECT count(*) FROM (" + query.SQL + ") AS q"
		if err := conn.QueryRow(ctx, countSQL).Scan(&s.total); err != nil {
			s.Close()
			return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "count query failed").
				WithDetail("query", countSQL)
		}
		s.hasTotal = true
	}

	rows, err := conn.Query(ctx, query.SQL)
	if err == nil {
		err = rows.Err()
	}
	if err != nil {
		if rows != nil {
			rows.Close()
		}
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "query rejected").
			WithDetail("query", query.SQL)
	}
	s.rows = rows

	fds := rows.FieldDescriptions()
	cols := make([]models.Column, len(fds))
	s.oids = make([]uint32, len(fds))
	for i, fd := range fds {
		s.oids[i] = fd.DataTypeOID
		cols[i] = models.Column{
			Name:         fd.Name,
			DatabaseType: typeName(conn, fd.DataTypeOID),
			Kind:         KindForOID(fd.DataTypeOID),
			Nullable:     true,
		}
	}
	s.schema = models.NewSchema(cols...)

	log.Debug("query started", zap.Int("columns", len(cols)))
	return s, nil
}

func connect(ctx context.Context, params core.ConnectionParams) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(connString(params))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgresql connection settings")
	}
	if params.Timeout > 0 {
		cfg.ConnectTimeout = params.Timeout
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeConnection, "failed to connect to postgresql").
			WithDetail("host", cfg.Host).
			WithDetail("database", cfg.Database)
	}

	for _, stmt := range params.Init {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			conn.Close(context.Background())
			return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "init statement failed").
				WithDetail("query", stmt)
		}
	}
	return conn, nil
}

// connString renders params as a keyword/value connection string. Fields
// left empty fall back to libpq environment defaults.
func connString(params core.ConnectionParams) string {
	var parts []string
	add := func(k, v string) {
		if v == "" {
			return
		}
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		parts = append(parts, fmt.Sprintf("%s='%s'", k, v))
	}
	host := params.Host
	if params.Socket != "" {
		host = params.Socket
	}
	add("host", host)
	if params.Port != 0 {
		add("port", strconv.Itoa(params.Port))
	}
	add("user", params.User)
	add("password", params.Password)
	add("dbname", params.Database)
	add("sslmode", params.SSLMode)
	add("application_name", params.Extra["application_name"])
	return strings.Join(parts, " ")
}

func typeName(conn *pgx.Conn, oid uint32) string {
	if t, ok := conn.TypeMap().TypeForOID(oid); ok {
		return t.Name
	}
	return "oid_" + strconv.FormatUint(uint64(oid), 10)
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

	raw, err := s.rows.Values()
	if err != nil {
		return models.Row{}, errors.Wrap(err, errors.ErrorTypeConversion, "failed to decode row")
	}

	values := make([]models.Value, len(raw))
	for i, r := range raw {
		v, err := ConvertValue(s.schema.Columns[i], i, s.oids[i], r)
		if err != nil {
			return models.Row{}, errors.Annotate(err, errors.ErrorTypeConversion, nil)
		}
		values[i] = v
	}
	return models.Row{Schema: s.schema, Values: values}, nil
}

// Close releases the cursor and the connection
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.rows != nil {
		s.rows.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.conn.Close(ctx)
	s.logger.Debug("postgresql source closed", zap.Int64("rows_read", s.rowIndex))
	return err
}

const catalogQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

// Catalog lists user tables and columns.
func Catalog(ctx context.Context, params core.ConnectionParams) ([]core.CatalogEntry, error) {
	conn, err := connect(ctx, params)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(ctx, catalogQuery)
	if err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "catalog query failed")
	}
	defer rows.Close()

	var out []core.CatalogEntry
	for rows.Next() {
		var e core.CatalogEntry
		if err := rows.Scan(&e.Schema, &e.Table, &e.Column, &e.DataType); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan catalog row")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "catalog query failed")
	}
	return out, nil
}
