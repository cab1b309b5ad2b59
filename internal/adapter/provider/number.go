package provider

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number is a JSON value that may arrive as a number or a numeric string.
// Anything unparseable decodes to an absent value rather than an error.
type Number struct {
	v  float64
	ok bool
}

// NumberOf returns a present Number.
func NumberOf(v float64) Number { return Number{v: v, ok: true} }

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*n = NumberOf(f)
		}
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		*n = NumberOf(f)
	}
	return nil
}

// Present reports whether a value was decoded.
func (n Number) Present() bool { return n.ok }

// Float returns the value, or nil when absent.
func (n Number) Float() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

// Int returns the value rounded to the nearest integer, or nil when absent
// or outside the int32 range.
func (n Number) Int() *int {
	if !n.ok {
		return nil
	}
	r := math.Round(n.v)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return nil
	}
	v := int(r)
	return &v
}

// Positive returns n if it is present and greater than zero.
func (n Number) Positive() Number {
	if n.ok && n.v > 0 {
		return n
	}
	return Number{}
}

// First returns the first present Number.
func First(ns ...Number) Number {
	for _, n := range ns {
		if n.ok {
			return n
		}
	}
	return Number{}
}

// FirstString returns the first non-blank string, trimmed.
func FirstString(ss ...string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// StringPtr returns nil for a blank string.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ParseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
