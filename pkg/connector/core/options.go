package core

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Options are format specific sink settings given as key=value pairs.
type Options map[string]string

// Option keys shared by several sinks.
const (
	OptionNull  = "null"
	OptionBytes = "bytes"
)

// ParseOptions parses "key=value" pairs.
func ParseOptions(pairs []string) (Options, error) {
	opts := Options{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "option %q is not key=value", kv)
		}
		opts[k] = v
	}
	return opts, nil
}

// String returns the option or def when unset.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

// Int returns the option as an integer.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, "option is not an integer").WithDetail("option", key)
	}
	return i, nil
}

// Bool returns the option as a boolean. A bare key ("compact=") counts as
// true.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	if strings.TrimSpace(v) == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeConfig, "option is not a boolean").WithDetail("option", key)
	}
	return b, nil
}

// FormatOptions reads the null and bytes options shared by text based sinks.
func (o Options) FormatOptions() (models.FormatOptions, error) {
	fo := models.DefaultFormatOptions()
	fo.NullText = o.String(OptionNull, "")
	switch enc := models.BytesEncoding(strings.ToLower(o.String(OptionBytes, string(models.BytesBase64)))); enc {
	case models.BytesBase64, models.BytesHex:
		fo.BytesEncoding = enc
	default:
		return fo, errors.Newf(errors.ErrorTypeConfig, "unknown bytes encoding %q", enc)
	}
	return fo, nil
}
