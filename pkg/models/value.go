// Package models holds the value model shared by every row source and sink:
// a closed set of value kinds, rows, and the result set schema.
//
// Backend values are converted into Value exactly once, by the source that
// read them. Sinks only ever see Values and render them with DisplayText or
// their own typed encoding.
package models

import (
	"bytes"
	"math"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is SQL NULL. As a column hint it means "unknown".
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindText
	KindBytes
	KindTimestamp
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindText:      "text",
	KindBytes:     "bytes",
	KindTimestamp: "timestamp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind    Kind
	num     int64
	flt     float64
	str     string
	raw     []byte
	ts      time.Time
	hasZone bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Integer returns a signed 64-bit integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

// Float returns a 64-bit float value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Bytes returns a binary value. The slice is copied.
func Bytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, raw: cp}
}

// Timestamp returns an instant. When hasZone is false t is treated as a wall
// clock reading and its location is dropped.
func Timestamp(t time.Time, hasZone bool) Value {
	if !hasZone {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return Value{kind: KindTimestamp, ts: t, hasZone: hasZone}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.num != 0, v.kind == KindBool }

func (v Value) AsInteger() (int64, bool) { return v.num, v.kind == KindInteger }

func (v Value) AsFloat() (float64, bool) { return v.flt, v.kind == KindFloat }

func (v Value) AsText() (string, bool) { return v.str, v.kind == KindText }

// AsBytes returns the binary payload. Callers must not modify it.
func (v Value) AsBytes() ([]byte, bool) { return v.raw, v.kind == KindBytes }

// AsTimestamp returns the instant and whether it carries a zone.
func (v Value) AsTimestamp() (t time.Time, hasZone bool, ok bool) {
	return v.ts, v.hasZone, v.kind == KindTimestamp
}

// Equal reports whether a and b hold the same variant and payload. NaN equals
// NaN so that round trips can be checked; zoned timestamps compare as
// instants.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindInteger:
		return a.num == b.num
	case KindFloat:
		if math.IsNaN(a.flt) && math.IsNaN(b.flt) {
			return true
		}
		return a.flt == b.flt
	case KindText:
		return a.str == b.str
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindTimestamp:
		return a.hasZone == b.hasZone && a.ts.Equal(b.ts)
	}
	return false
}
