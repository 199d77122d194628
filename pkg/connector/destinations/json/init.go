package json

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("json", New)
	_ = registry.RegisterSink("jsonl", NewLines)
}
