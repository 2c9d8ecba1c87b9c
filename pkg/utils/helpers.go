package utils

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"go-query-cache/internal/model"
)

// DefaultTimeout is used when a duration string is empty or invalid.
const DefaultTimeout = 10 * time.Minute

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return DefaultTimeout
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return DefaultTimeout
	}
	return duration
}

// ParseValue converts a raw cell to int64, float64, a date or a string,
// in that order of preference.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if d, ok := ParseDate(s); ok {
		return d
	}
	return s
}

// ParseDate accepts "2006-01-02" and RFC3339 timestamps at midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		if t.Equal(model.Date(t)) {
			return model.Date(t), true
		}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		if t.Equal(model.Date(t)) {
			return model.Date(t), true
		}
	}
	return time.Time{}, false
}

// InferType returns the column type a parsed value belongs to.
func InferType(v interface{}) (model.ColumnType, bool) {
	switch v.(type) {
	case int64:
		return model.TypeInteger, true
	case float64:
		return model.TypeFloat, true
	case time.Time:
		return model.TypeDate, true
	case string:
		return model.TypeText, true
	default:
		return "", false
	}
}

// WidenType merges two observed column types. Integers widen to float,
// anything else that disagrees widens to text.
func WidenType(a, b model.ColumnType) model.ColumnType {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	case (a == model.TypeInteger && b == model.TypeFloat) || (a == model.TypeFloat && b == model.TypeInteger):
		return model.TypeFloat
	default:
		return model.TypeText
	}
}

// Numeric safely converts supported types to float64.
func Numeric(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	case nil:
		return 0
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float()
		}
		return 0
	}
}
