package models

import (
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// ConversionError reports a backend value that has no representation in the
// value model. The pipeline adds the row index when the job fails.
func ConversionError(col Column, index int, raw interface{}, reason string) *errors.Error {
	return errors.New(errors.ErrorTypeConversion, reason).
		WithDetail("column", col.Name).
		WithDetail("column_index", index).
		WithDetail("database_type", col.DatabaseType).
		WithDetail("go_type", fmt.Sprintf("%T", raw))
}

// FromGo converts the plain Go values produced by database/sql drivers. It is
// the shared tail of every backend's conversion function; anything it does
// not recognise is a conversion error.
func FromGo(col Column, index int, raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint:
		return fromUint(col, index, uint64(v))
	case uint64:
		return fromUint(col, index, v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return Bytes(v), nil
	case time.Time:
		return Timestamp(v, true), nil
	}
	return Value{}, ConversionError(col, index, raw, "unsupported value type")
}

func fromUint(col Column, index int, u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, ConversionError(col, index, u, "unsigned value exceeds int64 range").
			WithDetail("value", u)
	}
	return Integer(int64(u)), nil
}
