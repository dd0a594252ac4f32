package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConfigValueType matches collectd's OCONFIG_TYPE_* constants.
type ConfigValueType int

const (
	ConfigString  ConfigValueType = 0
	ConfigNumber  ConfigValueType = 1
	ConfigBoolean ConfigValueType = 2
)

func (t ConfigValueType) String() string {
	switch t {
	case ConfigString:
		return "string"
	case ConfigNumber:
		return "number"
	case ConfigBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("ConfigValueType(%d)", int(t))
	}
}

var (
	ErrExpectSingleValue = errors.New("expected exactly one value")
	ErrExpectString      = errors.New("expected a string")
	ErrExpectNumber      = errors.New("expected a number")
	ErrExpectBoolean     = errors.New("expected a boolean")
)

// ConfigValue is one argument of a configuration line.
type ConfigValue struct {
	typ ConfigValueType
	str string
	num float64
	b   bool
}

func StringValue(s string) ConfigValue {
	return ConfigValue{typ: ConfigString, str: s}
}

func NumberValue(f float64) ConfigValue {
	return ConfigValue{typ: ConfigNumber, num: f}
}

func BooleanValue(b bool) ConfigValue {
	return ConfigValue{typ: ConfigBoolean, b: b}
}

func (v ConfigValue) Type() ConfigValueType {
	return v.typ
}

func (v ConfigValue) AsString() (string, bool) {
	return v.str, v.typ == ConfigString
}

func (v ConfigValue) AsNumber() (float64, bool) {
	return v.num, v.typ == ConfigNumber
}

func (v ConfigValue) AsBoolean() (bool, bool) {
	return v.b, v.typ == ConfigBoolean
}

// Interface returns the value as a string, float64 or bool.
func (v ConfigValue) Interface() any {
	switch v.typ {
	case ConfigNumber:
		return v.num
	case ConfigBoolean:
		return v.b
	default:
		return v.str
	}
}

// String formats the value the way it would be written in collectd.conf.
func (v ConfigValue) String() string {
	switch v.typ {
	case ConfigNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ConfigBoolean:
		return strconv.FormatBool(v.b)
	default:
		return strconv.Quote(v.str)
	}
}

// ConfigItem is a node of collectd's configuration tree. Block arguments
// (e.g. the name in <Plugin name>) are stored as Values.
type ConfigItem struct {
	Key      string
	Values   []ConfigValue
	Children []ConfigItem
}

// Child returns the first child with the given key, ignoring case.
func (ci ConfigItem) Child(key string) (ConfigItem, bool) {
	for _, c := range ci.Children {
		if strings.EqualFold(c.Key, key) {
			return c, true
		}
	}
	return ConfigItem{}, false
}

func (ci ConfigItem) single() (ConfigValue, error) {
	if len(ci.Values) != 1 {
		return ConfigValue{}, fmt.Errorf("%s: %w, got %d", ci.Key, ErrExpectSingleValue, len(ci.Values))
	}
	return ci.Values[0], nil
}

// StringValue returns the item's only value as a string.
func (ci ConfigItem) StringValue() (string, error) {
	v, err := ci.single()
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%s: %w, got %s", ci.Key, ErrExpectString, v.Type())
	}
	return s, nil
}

// NumberValue returns the item's only value as a number.
func (ci ConfigItem) NumberValue() (float64, error) {
	v, err := ci.single()
	if err != nil {
		return 0, err
	}
	f, ok := v.AsNumber()
	if !ok {
		return 0, fmt.Errorf("%s: %w, got %s", ci.Key, ErrExpectNumber, v.Type())
	}
	return f, nil
}

// BooleanValue returns the item's only value as a boolean.
func (ci ConfigItem) BooleanValue() (bool, error) {
	v, err := ci.single()
	if err != nil {
		return false, err
	}
	b, ok := v.AsBoolean()
	if !ok {
		return false, fmt.Errorf("%s: %w, got %s", ci.Key, ErrExpectBoolean, v.Type())
	}
	return b, nil
}

// String renders the item and its children in collectd.conf syntax.
func (ci ConfigItem) String() string {
	var b strings.Builder
	ci.write(&b, 0)
	return b.String()
}

func (ci ConfigItem) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	args := make([]string, len(ci.Values))
	for i, v := range ci.Values {
		args[i] = v.String()
	}
	head := ci.Key
	if len(args) > 0 {
		head += " " + strings.Join(args, " ")
	}
	if len(ci.Children) == 0 {
		fmt.Fprintf(b, "%s%s\n", indent, head)
		return
	}
	fmt.Fprintf(b, "%s<%s>\n", indent, head)
	for _, c := range ci.Children {
		c.write(b, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, ci.Key)
}
