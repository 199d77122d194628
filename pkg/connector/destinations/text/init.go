package text

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("text", NewTable)
	_ = registry.RegisterSink("text-vertical", NewVertical)
}
