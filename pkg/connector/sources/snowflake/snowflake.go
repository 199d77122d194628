// Package snowflake reads query results from Snowflake through gosnowflake.
package snowflake

import (
	"strconv"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/sources/sqldb"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Dialect is the Snowflake database/sql dialect.
var Dialect = sqldb.Dialect{
	Name:       "snowflake",
	DriverName: "snowflake",
	DSN:        DSN,
	Kind:       KindForType,
	Convert:    ConvertValue,
	CatalogQuery: `
SELECT table_schema, table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema <> 'INFORMATION_SCHEMA'
ORDER BY table_schema, table_name, ordinal_position`,
}

// DSN builds a gosnowflake DSN. The account comes from the account field;
// warehouse, schema and role are optional fields.
func DSN(params core.ConnectionParams) (string, error) {
	account := params.Extra["account"]
	if account == "" {
		return "", errors.New(errors.ErrorTypeConfig, "snowflake needs an account")
	}
	cfg := &sf.Config{
		Account:   account,
		User:      params.User,
		Password:  params.Password,
		Database:  params.Database,
		Schema:    params.Extra["schema"],
		Warehouse: params.Extra["warehouse"],
		Role:      params.Extra["role"],
		Host:      params.Host,
		Port:      params.Port,
	}
	if params.Timeout > 0 {
		cfg.LoginTimeout = params.Timeout
	}
	return sf.DSN(cfg)
}

// KindForType maps Snowflake's internal type names to value kinds.
func KindForType(col sqldb.ColumnInfo) models.Kind {
	switch strings.ToUpper(col.DatabaseType) {
	case "FIXED":
		if col.HasDecimal && col.Scale > 0 {
			return models.KindText
		}
		return models.KindInteger
	case "REAL":
		return models.KindFloat
	case "BOOLEAN":
		return models.KindBool
	case "BINARY":
		return models.KindBytes
	case "DATE", "TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		return models.KindTimestamp
	}
	return models.KindText
}

// ConvertValue maps gosnowflake values, which arrive as strings for most
// types. NUMBER with a scale stays exact text, as does a NUMBER(38,0) value
// outside the int64 range. TIME becomes text; VARIANT, OBJECT and ARRAY
// keep their JSON text.
func ConvertValue(col sqldb.ColumnInfo, index int, raw interface{}) (models.Value, error) {
	typ := strings.ToUpper(col.DatabaseType)

	switch v := raw.(type) {
	case nil:
		return models.Null(), nil
	case time.Time:
		switch typ {
		case "TIME":
			return models.Text(v.Format("15:04:05.999999999")), nil
		case "DATE", "TIMESTAMP_NTZ":
			return models.Timestamp(v, false), nil
		}
		return models.Timestamp(v, true), nil
	case string:
		switch typ {
		case "FIXED":
			if col.HasDecimal && col.Scale > 0 {
				return models.Text(v), nil
			}
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return models.Integer(i), nil
			}
			return models.Text(v), nil
		case "REAL":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return models.Value{}, models.ConversionError(col.Column, index, raw, "invalid float")
			}
			return models.Float(f), nil
		case "BOOLEAN":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return models.Value{}, models.ConversionError(col.Column, index, raw, "invalid boolean")
			}
			return models.Bool(b), nil
		}
		return models.Text(v), nil
	}
	return models.FromGo(col.Column, index, raw)
}
