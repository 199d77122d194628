package postgresql

import (
	"database/sql/driver"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ajitpratap0/sqlport/pkg/models"
)

// KindForOID returns the value kind a column of the given type decodes to.
func KindForOID(oid uint32) models.Kind {
	switch oid {
	case pgtype.BoolOID:
		return models.KindBool
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID, pgtype.OIDOID:
		return models.KindInteger
	case pgtype.Float4OID, pgtype.Float8OID:
		return models.KindFloat
	case pgtype.ByteaOID:
		return models.KindBytes
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return models.KindTimestamp
	}
	return models.KindText
}

// ConvertValue maps a value decoded by pgx into the value model.
//
// numeric keeps its exact decimal text. date and timestamp are wall clock
// timestamps, timestamptz is zoned. time, interval, uuid, json, network
// types, arrays and infinite dates become text.
func ConvertValue(col models.Column, index int, oid uint32, raw interface{}) (models.Value, error) {
	if raw == nil {
		return models.Null(), nil
	}

	switch oid {
	case pgtype.JSONOID, pgtype.JSONBOID:
		b, err := json.Marshal(raw)
		if err != nil {
			return models.Value{}, models.ConversionError(col, index, raw, "cannot encode json value")
		}
		return models.Text(string(b)), nil
	case pgtype.ByteaOID:
		if b, ok := raw.([]byte); ok {
			return models.Bytes(b), nil
		}
	}

	switch v := raw.(type) {
	case time.Time:
		return models.Timestamp(v, oid == pgtype.TimestamptzOID), nil
	case pgtype.InfinityModifier:
		return models.Text(v.String()), nil
	case [16]byte:
		return models.Text(formatUUID(v)), nil
	case []byte:
		// unregistered types decoded in text format
		return models.Text(string(v)), nil
	case netip.Prefix:
		return models.Text(v.String()), nil
	case net.HardwareAddr:
		return models.Text(v.String()), nil
	case []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return models.Value{}, models.ConversionError(col, index, raw, "cannot encode array value")
		}
		return models.Text(string(b)), nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return models.Value{}, models.ConversionError(col, index, raw, err.Error())
		}
		if dv == nil {
			return models.Null(), nil
		}
		if s, ok := dv.(string); ok {
			return models.Text(s), nil
		}
		return models.FromGo(col, index, dv)
	case fmt.Stringer:
		return models.Text(v.String()), nil
	}
	return models.FromGo(col, index, raw)
}

func formatUUID(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
