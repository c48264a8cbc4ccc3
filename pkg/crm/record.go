package crm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one CRM entity as returned by the store. Fields are schema-free;
// the identity field is "Id".
type Record map[string]any

func (r Record) ID() string {
	return r.String("Id")
}

func (r Record) Name() string {
	return r.String("Name")
}

// String renders a field as text. Missing and null fields are "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// StringOr is String with a fallback for missing or empty values.
func (r Record) StringOr(field, fallback string) string {
	if s := r.String(field); s != "" {
		return s
	}
	return fallback
}

// Float reads a numeric field. Numeric strings are accepted.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// Clone returns a shallow copy so callers can annotate without touching the original.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NameContains reports whether the record name contains needle, case-insensitively.
func (r Record) NameContains(needle string) bool {
	return strings.Contains(strings.ToLower(r.Name()), strings.ToLower(needle))
}
