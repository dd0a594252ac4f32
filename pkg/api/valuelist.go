package api

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DataSource describes one column of a data set from types.db.
type DataSource struct {
	Name string
	Type DSType
	Min  float64
	Max  float64
}

// DataSet is the types.db entry matching a value list's type. Min and Max are
// NaN when unbounded.
type DataSet struct {
	Type    string
	Sources []DataSource
}

// ValueList is a set of samples sharing an identifier and a timestamp.
type ValueList struct {
	Identifier
	Time     time.Time
	Interval time.Duration
	Values   []Value
	// DSNames names each value. When empty, DSName falls back to "value"
	// for single-value lists and to the index otherwise.
	DSNames []string
	// Sources is filled on the write path from the daemon's data set.
	Sources []DataSource
	Meta    Meta
}

// DSName returns the data source name of the value at index.
func (vl *ValueList) DSName(index int) string {
	if index < len(vl.DSNames) {
		return vl.DSNames[index]
	}
	if index < len(vl.Sources) {
		return vl.Sources[index].Name
	}
	if len(vl.Values) == 1 {
		return "value"
	}
	return strconv.Itoa(index)
}

// Clone returns a deep copy of the value list.
func (vl ValueList) Clone() ValueList {
	out := vl
	out.Values = append([]Value(nil), vl.Values...)
	out.DSNames = append([]string(nil), vl.DSNames...)
	out.Sources = append([]DataSource(nil), vl.Sources...)
	if vl.Meta != nil {
		out.Meta = make(Meta, len(vl.Meta))
		for k, v := range vl.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// Validate checks the value list can be converted to a value_list_t.
func (vl *ValueList) Validate() error {
	if vl.Plugin == "" {
		return &FieldError{Field: "plugin", Err: ErrEmptyField}
	}
	if vl.Type == "" {
		return &FieldError{Field: "type", Err: ErrEmptyField}
	}
	if err := vl.Identifier.validate(); err != nil {
		return err
	}
	if len(vl.Values) == 0 {
		return ErrNoValues
	}
	if vl.Meta != nil {
		if err := vl.Meta.Validate(); err != nil {
			return &FieldError{Field: "meta", Err: err}
		}
	}
	return nil
}

// ValueReport is a single value together with the data source describing it.
type ValueReport struct {
	Name  string
	Value Value
	Min   float64
	Max   float64
}

// Reports pairs each value with its data source. Lists that did not come
// from the daemon have no data set and report unbounded sources.
func (vl *ValueList) Reports() ([]ValueReport, error) {
	if len(vl.Sources) == 0 {
		reports := make([]ValueReport, len(vl.Values))
		for i, v := range vl.Values {
			reports[i] = ValueReport{Name: vl.DSName(i), Value: v, Min: math.NaN(), Max: math.NaN()}
		}
		return reports, nil
	}
	return NewValueReports(DataSet{Type: vl.Type, Sources: vl.Sources}, vl.Values)
}

// NewValueReports combines a data set with the values it describes.
func NewValueReports(ds DataSet, values []Value) ([]ValueReport, error) {
	if len(ds.Sources) != len(values) {
		return nil, fmt.Errorf("%w: type %s has %d sources, got %d values",
			ErrValueCountMismatch, ds.Type, len(ds.Sources), len(values))
	}
	reports := make([]ValueReport, len(values))
	for i, v := range values {
		src := ds.Sources[i]
		if v.Type() != src.Type {
			return nil, fmt.Errorf("value %d of type %s is a %s, want %s", i, ds.Type, v.Type(), src.Type)
		}
		reports[i] = ValueReport{Name: src.Name, Value: v, Min: src.Min, Max: src.Max}
	}
	return reports, nil
}

// NewValue builds a Value of the given type from its raw representation.
func NewValue(t DSType, raw float64) (Value, error) {
	switch t {
	case DSTypeGauge:
		return Gauge(raw), nil
	case DSTypeDerive:
		return Derive(int64(raw)), nil
	case DSTypeCounter:
		return Counter(uint64(raw)), nil
	case DSTypeAbsolute:
		return Absolute(uint64(raw)), nil
	}
	return nil, fmt.Errorf("unknown data source type %d", t)
}
