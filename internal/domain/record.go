package domain

import (
	"sort"
	"strings"
)

// Record is one logical row of import/export data: canonical field name to
// scalar value (string, int64, float64, bool or nil). Records are ephemeral;
// they exist only for the lifetime of the pipeline run that produced them.
type Record map[string]any

// IsEmpty reports whether the record carries no usable value at all.
func (r Record) IsEmpty() bool {
	for _, value := range r {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// String returns the value under key rendered as a string, or "" when the
// field is absent or null.
func (r Record) String(key string) string {
	return ScalarString(r[key])
}

// Has reports whether key is present with a non-empty value.
func (r Record) Has(key string) bool {
	value, ok := r[key]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Keys returns the record's field names in deterministic order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; scalar values need no deep copy.
func (r Record) Clone() Record {
	copied := make(Record, len(r))
	for key, value := range r {
		copied[key] = value
	}
	return copied
}
