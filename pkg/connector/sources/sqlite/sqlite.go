// Package sqlite reads query results from SQLite database files through the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/sources/sqldb"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Dialect is the SQLite database/sql dialect.
var Dialect = sqldb.Dialect{
	Name:       "sqlite",
	Aliases:    []string{"sqlite3"},
	DriverName: "sqlite",
	DSN:        DSN,
	Kind:       KindForType,
	Convert:    ConvertValue,
	CatalogQuery: `
SELECT '' AS schema_name, m.name, p.name, p.type
FROM sqlite_master AS m
JOIN pragma_table_info(m.name) AS p
WHERE m.type IN ('table', 'view')
ORDER BY m.name, p.cid`,
}

// DSN uses the database field, or the path field, as the file name.
func DSN(params core.ConnectionParams) (string, error) {
	path := params.Database
	if path == "" {
		path = params.Extra["path"]
	}
	if path == "" {
		return "", errors.New(errors.ErrorTypeConfig, "sqlite needs a database file")
	}
	if params.Timeout > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "_pragma=busy_timeout(" + strconv.FormatInt(params.Timeout.Milliseconds(), 10) + ")"
	}
	return path, nil
}

// KindForType applies SQLite's column affinity rules to the declared type.
func KindForType(col sqldb.ColumnInfo) models.Kind {
	t := strings.ToUpper(col.DatabaseType)
	switch {
	case strings.Contains(t, "BOOL"):
		return models.KindBool
	case strings.Contains(t, "INT"):
		return models.KindInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return models.KindText
	case strings.Contains(t, "BLOB"):
		return models.KindBytes
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return models.KindFloat
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return models.KindTimestamp
	}
	return models.KindNull
}

// ConvertValue maps modernc.org/sqlite values. Timestamps parsed by the
// driver carry no zone unless the declared type says so.
func ConvertValue(col sqldb.ColumnInfo, index int, raw interface{}) (models.Value, error) {
	switch v := raw.(type) {
	case int64:
		if col.Kind == models.KindBool {
			return models.Bool(v != 0), nil
		}
	case time.Time:
		t := strings.ToUpper(col.DatabaseType)
		return models.Timestamp(v, strings.Contains(t, "TZ") || strings.Contains(t, "ZONE")), nil
	}
	return models.FromGo(col.Column, index, raw)
}
