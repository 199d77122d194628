package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/sqlport/pkg/models"
)

// KindForField maps a BigQuery field to a value kind.
func KindForField(f *bigquery.FieldSchema) models.Kind {
	if f.Repeated {
		return models.KindText
	}
	switch f.Type {
	case bigquery.IntegerFieldType:
		return models.KindInteger
	case bigquery.FloatFieldType:
		return models.KindFloat
	case bigquery.BooleanFieldType:
		return models.KindBool
	case bigquery.BytesFieldType:
		return models.KindBytes
	case bigquery.TimestampFieldType, bigquery.DateFieldType, bigquery.DateTimeFieldType:
		return models.KindTimestamp
	}
	return models.KindText
}

// ConvertValue maps a value read by the BigQuery client.
//
// NUMERIC and BIGNUMERIC keep their exact decimal text. DATE and DATETIME
// are wall clock timestamps, TIMESTAMP is zoned. TIME, INTERVAL and
// GEOGRAPHY become text; repeated and RECORD fields are encoded as JSON.
func ConvertValue(col models.Column, index int, f *bigquery.FieldSchema, raw bigquery.Value) (models.Value, error) {
	if raw == nil {
		return models.Null(), nil
	}
	if f.Repeated || f.Type == bigquery.RecordFieldType {
		b, err := json.Marshal(jsonable(f, raw, f.Repeated))
		if err != nil {
			return models.Value{}, models.ConversionError(col, index, raw, "cannot encode nested value")
		}
		return models.Text(string(b)), nil
	}

	switch v := raw.(type) {
	case *big.Rat:
		if f.Type == bigquery.BigNumericFieldType {
			return models.Text(bigquery.BigNumericString(v)), nil
		}
		return models.Text(bigquery.NumericString(v)), nil
	case civil.Date:
		return models.Timestamp(v.In(time.UTC), false), nil
	case civil.DateTime:
		return models.Timestamp(v.In(time.UTC), false), nil
	case civil.Time:
		return models.Text(v.String()), nil
	case time.Time:
		return models.Timestamp(v, true), nil
	case fmt.Stringer:
		return models.Text(v.String()), nil
	}
	return models.FromGo(col, index, raw)
}

// jsonable turns nested BigQuery values into plain JSON values, using the
// field schema to name record members.
func jsonable(f *bigquery.FieldSchema, raw bigquery.Value, repeated bool) interface{} {
	if raw == nil {
		return nil
	}
	if repeated {
		items, _ := raw.([]bigquery.Value)
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = jsonable(f, it, false)
		}
		return out
	}
	switch v := raw.(type) {
	case []bigquery.Value:
		if f.Type != bigquery.RecordFieldType {
			return v
		}
		obj := make(map[string]interface{}, len(v))
		for i, member := range v {
			if i < len(f.Schema) {
				sub := f.Schema[i]
				obj[sub.Name] = jsonable(sub, member, sub.Repeated)
			}
		}
		return obj
	case *big.Rat:
		if f.Type == bigquery.BigNumericFieldType {
			return bigquery.BigNumericString(v)
		}
		return bigquery.NumericString(v)
	case []byte:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	}
	return raw
}
