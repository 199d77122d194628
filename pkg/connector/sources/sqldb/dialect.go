// Package sqldb is the row source shared by every backend reached through
// database/sql. A Dialect supplies what differs between backends: the
// driver, the DSN, the value conversion and the catalog query.
package sqldb

import (
	"context"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// ColumnInfo is a result column plus the decimal metadata some backends
// need to pick a conversion.
type ColumnInfo struct {
	models.Column
	Precision  int64
	Scale      int64
	HasDecimal bool
}

// Dialect describes one database/sql backend.
type Dialect struct {
	// Name is the profile driver name.
	Name string
	// Aliases are extra driver names that resolve to this dialect.
	Aliases []string
	// DriverName is the name the driver registered with database/sql.
	DriverName string
	// DSN builds the driver data source name.
	DSN func(params core.ConnectionParams) (string, error)
	// Kind maps a column to its value kind hint.
	Kind func(col ColumnInfo) models.Kind
	// Convert maps one scanned driver value into the value model.
	Convert func(col ColumnInfo, index int, raw interface{}) (models.Value, error)
	// CatalogQuery returns rows of (schema, table, column, type). Empty
	// when the backend cannot list its catalog.
	CatalogQuery string
	// CatalogArgs binds CatalogQuery parameters from the connection.
	CatalogArgs func(params core.ConnectionParams) []interface{}
}

// Register adds the dialect's source and catalog to the global registry.
func Register(d Dialect) {
	open := func(ctx context.Context, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
		return Open(ctx, d, params, query)
	}
	catalog := func(ctx context.Context, params core.ConnectionParams) ([]core.CatalogEntry, error) {
		return Catalog(ctx, d, params)
	}
	for _, name := range append([]string{d.Name}, d.Aliases...) {
		_ = registry.RegisterSource(name, open)
		if d.CatalogQuery != "" {
			_ = registry.RegisterCatalog(name, catalog)
		}
	}
}
