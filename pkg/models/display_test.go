package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayText(t *testing.T) {
	opts := DefaultFormatOptions()
	zoned := time.Date(2024, 2, 29, 23, 59, 58, 123000000, time.FixedZone("", -5*3600))
	local := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), ""},
		{"true", Bool(true), "true"},
		{"integer", Integer(-12), "-12"},
		{"float", Float(0.1), "0.1"},
		{"float exponent", Float(1e21), "1e+21"},
		{"nan", Float(math.NaN()), "NaN"},
		{"inf", Float(math.Inf(-1)), "-Inf"},
		{"text", Text("a,b"), "a,b"},
		{"bytes", Bytes([]byte("hi")), "aGk="},
		{"zoned", Timestamp(zoned, true), "2024-02-29T23:59:58.123-05:00"},
		{"local", Timestamp(local, false), "2024-02-29T08:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayText(tt.v, opts))
		})
	}

	assert.Equal(t, "6869", DisplayText(Bytes([]byte("hi")), FormatOptions{BytesEncoding: BytesHex}))
	assert.Equal(t, `\N`, DisplayText(Null(), FormatOptions{NullText: `\N`}))
}

// roundTripValues covers every variant, including the awkward corners of
// each one.
func roundTripValues() []Value {
	return []Value{
		Null(),
		Bool(false),
		Bool(true),
		Integer(math.MinInt64),
		Integer(math.MaxInt64),
		Float(math.SmallestNonzeroFloat64),
		Float(-0.3),
		Float(math.NaN()),
		Float(math.Inf(1)),
		Text(""),
		Text("line\nbreak \"quoted\""),
		Bytes(nil),
		Bytes([]byte{0, 255, 10}),
		Timestamp(time.Date(1999, 12, 31, 23, 59, 59, 999999999, time.UTC), true),
		Timestamp(time.Date(2030, 6, 1, 0, 0, 0, 1000, time.FixedZone("", 9*3600+1800)), true),
		Timestamp(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), false),
	}
}

func TestParseDisplayTextRoundTrip(t *testing.T) {
	for _, enc := range []BytesEncoding{BytesBase64, BytesHex} {
		opts := FormatOptions{NullText: `\N`, BytesEncoding: enc}
		for _, v := range roundTripValues() {
			kind := v.Kind()
			if kind == KindNull {
				kind = KindInteger
			}
			text := DisplayText(v, opts)
			back, err := ParseDisplayText(text, kind, opts)
			require.NoError(t, err, text)
			assert.True(t, Equal(v, back), "%s: %q -> %#v", kind, text, back)
		}
	}
}

func TestParseDisplayTextEmptyNullText(t *testing.T) {
	opts := DefaultFormatOptions()

	v, err := ParseDisplayText("", KindInteger, opts)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = ParseDisplayText("", KindText, opts)
	require.NoError(t, err)
	assert.True(t, Equal(Text(""), v))

	_, err = ParseDisplayText("x", KindInteger, opts)
	assert.Error(t, err)
}
