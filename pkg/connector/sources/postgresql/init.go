package postgresql

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource(Driver, Open)
	_ = registry.RegisterSource("postgres", Open)
	_ = registry.RegisterCatalog(Driver, Catalog)
	_ = registry.RegisterCatalog("postgres", Catalog)
}
