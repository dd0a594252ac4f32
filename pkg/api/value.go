// Package api provides the Go side of collectd's plugin data model.
//
// The types in this package mirror the structures collectd passes across its
// plugin ABI: value lists (timestamped samples tagged with an identifier),
// data sets describing the samples, notifications, configuration trees and
// log levels. They carry no cgo dependency, so plugins and their tests can be
// compiled and exercised without the daemon; the collectd package converts
// them to and from the C structures.
//
// Submitting values from a read callback:
//
//	err := api.NewValueListBuilder("myplugin", "load").
//	    Values(api.Gauge(0.5), api.Gauge(0.4), api.Gauge(0.3)).
//	    Submit()
package api

import (
	"fmt"
	"strconv"
	"strings"
)

// DSType is the data source type of a single value, as defined in types.db.
type DSType int

// Data source types. The numeric values match collectd's DS_TYPE_* constants.
const (
	DSTypeCounter  DSType = 0
	DSTypeGauge    DSType = 1
	DSTypeDerive   DSType = 2
	DSTypeAbsolute DSType = 3
)

func (t DSType) String() string {
	switch t {
	case DSTypeCounter:
		return "counter"
	case DSTypeGauge:
		return "gauge"
	case DSTypeDerive:
		return "derive"
	case DSTypeAbsolute:
		return "absolute"
	default:
		return "DSType(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseDSType parses the lower or upper case name used in types.db.
func ParseDSType(s string) (DSType, error) {
	switch strings.ToLower(s) {
	case "counter":
		return DSTypeCounter, nil
	case "gauge":
		return DSTypeGauge, nil
	case "derive":
		return DSTypeDerive, nil
	case "absolute":
		return DSTypeAbsolute, nil
	}
	return 0, fmt.Errorf("unknown data source type %q", s)
}

// Value is one sample of a value list. It is implemented by Gauge, Derive,
// Counter and Absolute only.
type Value interface {
	// Type returns the data source type matching the value.
	Type() DSType
	// Float returns the value converted to a float64.
	Float() float64
	String() string

	isValue()
}

// Gauge is an absolute value that may go up and down, e.g. a temperature.
type Gauge float64

// Derive is a signed counter; rates are computed from consecutive values.
type Derive int64

// Counter is an unsigned counter that may wrap around.
type Counter uint64

// Absolute is an unsigned counter that is reset after every read.
type Absolute uint64

func (Gauge) Type() DSType    { return DSTypeGauge }
func (Derive) Type() DSType   { return DSTypeDerive }
func (Counter) Type() DSType  { return DSTypeCounter }
func (Absolute) Type() DSType { return DSTypeAbsolute }

func (v Gauge) Float() float64    { return float64(v) }
func (v Derive) Float() float64   { return float64(v) }
func (v Counter) Float() float64  { return float64(v) }
func (v Absolute) Float() float64 { return float64(v) }

func (v Gauge) String() string    { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Derive) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Counter) String() string  { return strconv.FormatUint(uint64(v), 10) }
func (v Absolute) String() string { return strconv.FormatUint(uint64(v), 10) }

func (Gauge) isValue()    {}
func (Derive) isValue()   {}
func (Counter) isValue()  {}
func (Absolute) isValue() {}
