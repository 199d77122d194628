package models

import (
	"encoding/base64"
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// Canonical timestamp layouts used by DisplayText.
const (
	TimestampZoneLayout  = time.RFC3339Nano
	TimestampLocalLayout = "2006-01-02T15:04:05.999999999"
)

// BytesEncoding selects how binary values are rendered as text.
type BytesEncoding string

const (
	BytesBase64 BytesEncoding = "base64"
	BytesHex    BytesEncoding = "hex"
)

// FormatOptions controls DisplayText and ParseDisplayText.
type FormatOptions struct {
	// NullText is rendered for Null. Empty by default.
	NullText string
	// BytesEncoding defaults to base64.
	BytesEncoding BytesEncoding
}

// DefaultFormatOptions returns the options used when a sink sets none.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{BytesEncoding: BytesBase64}
}

// DisplayText renders v as locale independent text.
func DisplayText(v Value, opts FormatOptions) string {
	switch v.kind {
	case KindNull:
		return opts.NullText
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return FormatFloat(v.flt)
	case KindText:
		return v.str
	case KindBytes:
		if opts.BytesEncoding == BytesHex {
			return hex.EncodeToString(v.raw)
		}
		return base64.StdEncoding.EncodeToString(v.raw)
	case KindTimestamp:
		if v.hasZone {
			return v.ts.Format(TimestampZoneLayout)
		}
		return v.ts.Format(TimestampLocalLayout)
	}
	return ""
}

// FormatFloat renders f in the shortest form that parses back to the same
// float64.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseDisplayText is the inverse of DisplayText for a column of the given
// kind. KindNull as the kind means the type is unknown and yields Text.
//
// s equal to a non-empty NullText is Null for every kind. An empty NullText
// maps "" to Null except for text and unknown columns, where it stays the
// empty string.
func ParseDisplayText(s string, kind Kind, opts FormatOptions) (Value, error) {
	if opts.NullText != "" {
		if s == opts.NullText {
			return Null(), nil
		}
	} else if s == "" && kind != KindText && kind != KindNull {
		return Null(), nil
	}

	switch kind {
	case KindNull, KindText:
		return Text(s), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, parseError(s, kind, err)
		}
		return Bool(b), nil
	case KindInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, parseError(s, kind, err)
		}
		return Integer(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, parseError(s, kind, err)
		}
		return Float(f), nil
	case KindBytes:
		var (
			b   []byte
			err error
		)
		if opts.BytesEncoding == BytesHex {
			b, err = hex.DecodeString(s)
		} else {
			b, err = base64.StdEncoding.DecodeString(s)
		}
		if err != nil {
			return Value{}, parseError(s, kind, err)
		}
		return Bytes(b), nil
	case KindTimestamp:
		if t, err := time.Parse(TimestampLocalLayout, s); err == nil {
			return Timestamp(t, false), nil
		}
		t, err := time.Parse(TimestampZoneLayout, s)
		if err != nil {
			return Value{}, parseError(s, kind, err)
		}
		return Timestamp(t, true), nil
	}
	return Value{}, errors.Newf(errors.ErrorTypeConversion, "unknown kind %d", kind)
}

func parseError(s string, kind Kind, cause error) error {
	return errors.Wrap(cause, errors.ErrorTypeConversion, "cannot parse display text").
		WithDetail("kind", kind.String()).
		WithDetail("text", s)
}
