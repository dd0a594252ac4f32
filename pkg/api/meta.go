package api

import (
	"fmt"
	"sort"
)

// Meta holds the meta data attached to value lists and notifications.
// Supported value types are string, int64, uint64, float64 and bool; other
// integer and float types are accepted by Set and normalised.
type Meta map[string]any

// Set stores v under key after normalising its type.
func (m Meta) Set(key string, v any) error {
	nv, err := NormalizeMetaValue(v)
	if err != nil {
		return fmt.Errorf("meta data %q: %w", key, err)
	}
	m[key] = nv
	return nil
}

// Keys returns the keys in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the value stored under key if it is a string.
func (m Meta) GetString(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// Validate checks every entry has a supported type and rewrites narrower
// integer and float entries to int64, uint64 or float64.
func (m Meta) Validate() error {
	for _, k := range m.Keys() {
		if err := m.Set(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeMetaValue maps v onto one of the five types collectd can store.
func NormalizeMetaValue(v any) (any, error) {
	switch v := v.(type) {
	case string, int64, uint64, float64, bool:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case float32:
		return float64(v), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}
