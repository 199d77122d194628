package csv

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("csv", New)
	_ = registry.RegisterSink("tsv", NewTSV)
}
