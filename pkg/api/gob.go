package api

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"time"
)

// valueListWire is the gob form of a ValueList. Values travel as their type
// and raw 64 bits, the same way value_t stores them.
type valueListWire struct {
	Identifier Identifier
	Time       time.Time
	Interval   time.Duration
	Types      []DSType
	Bits       []uint64
	DSNames    []string
	Sources    []DataSource
	Meta       Meta
}

// ValueBits returns the raw bits of v.
func ValueBits(v Value) uint64 {
	switch v := v.(type) {
	case Gauge:
		return math.Float64bits(float64(v))
	case Derive:
		return uint64(v)
	case Counter:
		return uint64(v)
	case Absolute:
		return uint64(v)
	}
	return 0
}

// ValueFromBits is the inverse of ValueBits.
func ValueFromBits(t DSType, bits uint64) (Value, error) {
	switch t {
	case DSTypeGauge:
		return Gauge(math.Float64frombits(bits)), nil
	case DSTypeDerive:
		return Derive(int64(bits)), nil
	case DSTypeCounter:
		return Counter(bits), nil
	case DSTypeAbsolute:
		return Absolute(bits), nil
	}
	return nil, fmt.Errorf("unknown data source type %d", t)
}

// GobEncode implements gob.GobEncoder.
func (vl ValueList) GobEncode() ([]byte, error) {
	w := valueListWire{
		Identifier: vl.Identifier,
		Time:       vl.Time,
		Interval:   vl.Interval,
		Types:      make([]DSType, len(vl.Values)),
		Bits:       make([]uint64, len(vl.Values)),
		DSNames:    vl.DSNames,
		Sources:    vl.Sources,
		Meta:       vl.Meta,
	}
	for i, v := range vl.Values {
		w.Types[i] = v.Type()
		w.Bits[i] = ValueBits(v)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (vl *ValueList) GobDecode(b []byte) error {
	var w valueListWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	if len(w.Types) != len(w.Bits) {
		return fmt.Errorf("corrupt value list: %d types, %d values", len(w.Types), len(w.Bits))
	}
	values := make([]Value, len(w.Bits))
	for i := range w.Bits {
		v, err := ValueFromBits(w.Types[i], w.Bits[i])
		if err != nil {
			return err
		}
		values[i] = v
	}
	*vl = ValueList{
		Identifier: w.Identifier,
		Time:       w.Time,
		Interval:   w.Interval,
		Values:     values,
		DSNames:    w.DSNames,
		Sources:    w.Sources,
		Meta:       w.Meta,
	}
	return nil
}

type configValueWire struct {
	Type    ConfigValueType
	String  string
	Number  float64
	Boolean bool
}

// GobEncode implements gob.GobEncoder.
func (v ConfigValue) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := configValueWire{Type: v.typ, String: v.str, Number: v.num, Boolean: v.b}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (v *ConfigValue) GobDecode(b []byte) error {
	var w configValueWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	switch w.Type {
	case ConfigString, ConfigNumber, ConfigBoolean:
	default:
		return fmt.Errorf("unknown config value type %d", w.Type)
	}
	*v = ConfigValue{typ: w.Type, str: w.String, num: w.Number, b: w.Boolean}
	return nil
}
