package avro

import (
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("avro", New)
}
