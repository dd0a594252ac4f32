// Package config decodes collectd configuration trees into Go structs.
//
// A plugin receives the children of its <Plugin name> block as a slice of
// api.ConfigItem. Decode maps them onto a struct the way a plugin author would
// expect:
//
//   - keys match field names or `collectd:"Name"` tags, ignoring case
//   - a key repeated on several lines, or a line with several values, fills a
//     slice field; a single value fills a scalar or a one-element slice
//   - a block (<Key> ... </Key>) fills a nested struct; repeated blocks fill a
//     slice of structs
//   - numbers fill any numeric field, strings fill api.LogLevel, time.Duration
//     and other encoding.TextUnmarshaler fields, numbers fill time.Duration as
//     seconds
//   - pointer fields stay nil when the key is absent, unknown keys are ignored
//
// Example:
//
//	type Conf struct {
//	    Host     string
//	    Ports    []int          `collectd:"Port"`
//	    Timeout  time.Duration
//	    LogLevel *api.LogLevel
//	}
//
//	var c Conf
//	if err := config.Decode(items, &c); err != nil {
//	    return err
//	}
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"collectd.szuro.net/pkg/api"
	"github.com/go-viper/mapstructure/v2"
)

// TagName is the struct tag consulted for key names.
const TagName = "collectd"

// Decode decodes items into out, which must be a non-nil pointer.
func Decode(items []api.ConfigItem, out any) error {
	_, err := decode(items, out)
	return err
}

// DecodeUnused decodes like Decode and additionally returns the keys that
// matched no field, so plugins can warn about typos.
func DecodeUnused(items []api.ConfigItem, out any) ([]string, error) {
	md, err := decode(items, out)
	if err != nil {
		return nil, err
	}
	return md.Unused, nil
}

// DecodeItem decodes the children of a single block, e.g. <Plugin name>.
func DecodeItem(item api.ConfigItem, out any) error {
	return Decode(item.Children, out)
}

func decode(items []api.ConfigItem, out any) (*mapstructure.Metadata, error) {
	md := &mapstructure.Metadata{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(secondsToDurationHook),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.DecodeHookFuncType(liftToSliceHook),
		),
		Metadata: md,
		Result:   out,
		TagName:  TagName,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create config decoder: %w", err)
	}
	if err := dec.Decode(ToMap(items)); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	return md, nil
}

// ToMap flattens items into nested maps. Keys are lower cased so repeated
// keys group regardless of spelling. Values of repeated keys are
// concatenated; a single value is stored as a scalar, several as []any.
// Blocks become map[string]any, one per occurrence.
func ToMap(items []api.ConfigItem) map[string]any {
	grouped := make(map[string][]any, len(items))
	for _, item := range items {
		key := strings.ToLower(item.Key)
		if len(item.Children) > 0 {
			grouped[key] = append(grouped[key], ToMap(item.Children))
			continue
		}
		for _, v := range item.Values {
			grouped[key] = append(grouped[key], v.Interface())
		}
		if _, ok := grouped[key]; !ok && len(item.Values) == 0 {
			// A bare key such as "Enabled" reads as a boolean flag.
			grouped[key] = []any{true}
		}
	}

	out := make(map[string]any, len(grouped))
	for k, values := range grouped {
		if len(values) == 1 {
			out[k] = values[0]
		} else {
			out[k] = values
		}
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDurationHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if t != durationType {
		return data, nil
	}
	if secs, ok := data.(float64); ok {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return data, nil
}

func liftToSliceHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if data == nil || t.Kind() != reflect.Slice {
		return data, nil
	}
	if f.Kind() == reflect.Slice || f.Kind() == reflect.Array {
		return data, nil
	}
	return []any{data}, nil
}
