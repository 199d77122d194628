package mysql

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/sources/sqldb"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

func column(typ string) sqldb.ColumnInfo {
	return sqldb.ColumnInfo{Column: models.Column{Name: "c", DatabaseType: typ}}
}

func TestConvertValue(t *testing.T) {
	ts := time.Date(2023, 7, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		typ  string
		raw  interface{}
		want models.Value
	}{
		{"INT", []byte("-5"), models.Integer(-5)},
		{"UNSIGNED BIGINT", []byte("18"), models.Integer(18)},
		{"BIGINT", int64(9), models.Integer(9)},
		{"DOUBLE", []byte("2.5"), models.Float(2.5)},
		{"DECIMAL", []byte("10.000000000000000001"), models.Text("10.000000000000000001")},
		{"VARCHAR", []byte("héllo"), models.Text("héllo")},
		{"JSON", []byte(`{"a":1}`), models.Text(`{"a":1}`)},
		{"TIME", []byte("838:59:59"), models.Text("838:59:59")},
		{"VARBINARY", []byte{0, 1}, models.Bytes([]byte{0, 1})},
		{"DATETIME", ts, models.Timestamp(ts, false)},
		{"DATE", nil, models.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := ConvertValue(column(tt.typ), 0, tt.raw)
			require.NoError(t, err)
			assert.True(t, models.Equal(tt.want, got))
		})
	}
}

func TestConvertValueUnsignedOverflow(t *testing.T) {
	raw := []byte(strconv.FormatUint(math.MaxUint64, 10))
	_, err := ConvertValue(column("UNSIGNED BIGINT"), 2, raw)
	require.Error(t, err)
	assert.Equal(t, errors.ExitConversion, errors.ExitCode(err))
}

func TestKindForType(t *testing.T) {
	assert.Equal(t, models.KindInteger, KindForType(column("UNSIGNED INT")))
	assert.Equal(t, models.KindText, KindForType(column("DECIMAL")))
	assert.Equal(t, models.KindBytes, KindForType(column("BLOB")))
	assert.Equal(t, models.KindTimestamp, KindForType(column("TIMESTAMP")))
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(core.ConnectionParams{
		Host:     "db",
		User:     "root",
		Password: "pw",
		Database: "shop",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "root:pw@tcp(db:3306)/shop")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=5s")

	dsn, err = DSN(core.ConnectionParams{User: "u", Socket: "/run/mysqld.sock"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "u@unix(/run/mysqld.sock)/")
}
