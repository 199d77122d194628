// Package mysql reads query results from MySQL and MariaDB through
// go-sql-driver/mysql.
package mysql

import (
	"net"
	"strconv"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/sources/sqldb"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Dialect is the MySQL database/sql dialect.
var Dialect = sqldb.Dialect{
	Name:       "mysql",
	Aliases:    []string{"mariadb"},
	DriverName: "mysql",
	DSN:        DSN,
	Kind:       KindForType,
	Convert:    ConvertValue,
	CatalogQuery: `
SELECT t.table_schema, t.table_name, c.column_name, c.column_type
FROM information_schema.tables t
LEFT JOIN information_schema.columns c
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE (? = '' OR t.table_schema = ?)
  AND t.table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
ORDER BY t.table_schema, t.table_name, c.ordinal_position`,
	CatalogArgs: func(params core.ConnectionParams) []interface{} {
		return []interface{}{params.Database, params.Database}
	},
}

// DSN renders the connection parameters with the driver's own formatter.
func DSN(params core.ConnectionParams) (string, error) {
	cfg := driver.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.DBName = params.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Timeout = params.Timeout

	if params.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = params.Socket
	} else {
		host := params.Host
		if host == "" {
			host = "127.0.0.1"
		}
		port := params.Port
		if port == 0 {
			port = 3306
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	switch strings.ToLower(params.SSLMode) {
	case "", "disable":
	case "require", "prefer", "allow":
		cfg.TLSConfig = "skip-verify"
	default:
		cfg.TLSConfig = "true"
	}
	if charset := params.Extra["charset"]; charset != "" {
		cfg.Params = map[string]string{"charset": charset}
	}
	return cfg.FormatDSN(), nil
}

func isInteger(t string) bool {
	switch strings.TrimPrefix(t, "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		return true
	}
	return false
}

func isBinary(t string) bool {
	switch t {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY", "BIT", "GEOMETRY":
		return true
	}
	return false
}

// KindForType maps a MySQL column type name to a value kind.
func KindForType(col sqldb.ColumnInfo) models.Kind {
	t := strings.ToUpper(col.DatabaseType)
	switch {
	case isInteger(t):
		return models.KindInteger
	case t == "FLOAT" || t == "DOUBLE":
		return models.KindFloat
	case isBinary(t):
		return models.KindBytes
	case t == "DATE" || t == "DATETIME" || t == "TIMESTAMP":
		return models.KindTimestamp
	}
	return models.KindText
}

// ConvertValue maps MySQL values. The text protocol delivers most values
// as bytes, so the column type decides how they are parsed. DECIMAL stays
// exact text; unsigned BIGINT above the int64 range is rejected. DATETIME
// and TIMESTAMP are wall clock values.
func ConvertValue(col sqldb.ColumnInfo, index int, raw interface{}) (models.Value, error) {
	t := strings.ToUpper(col.DatabaseType)

	switch v := raw.(type) {
	case nil:
		return models.Null(), nil
	case time.Time:
		return models.Timestamp(v, false), nil
	case []byte:
		s := string(v)
		switch {
		case isBinary(t):
			return models.Bytes(v), nil
		case strings.HasPrefix(t, "UNSIGNED ") && isInteger(t):
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return models.Value{}, models.ConversionError(col.Column, index, raw, "invalid unsigned integer")
			}
			return models.FromGo(col.Column, index, u)
		case isInteger(t):
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return models.Value{}, models.ConversionError(col.Column, index, raw, "invalid integer")
			}
			return models.Integer(i), nil
		case t == "FLOAT" || t == "DOUBLE":
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return models.Value{}, models.ConversionError(col.Column, index, raw, "invalid float")
			}
			return models.Float(f), nil
		}
		// DECIMAL, character types, JSON, ENUM, SET, TIME and zero dates
		return models.Text(s), nil
	}
	return models.FromGo(col.Column, index, raw)
}
