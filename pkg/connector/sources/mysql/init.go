package mysql

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/sources/sqldb"
)

func init() {
	sqldb.Register(Dialect)
}
