// Package cdtime converts between Go time values and collectd's cdtime_t.
//
// collectd stores points in time and durations as an unsigned 64-bit fixed
// point number: the upper 34 bits hold seconds, the lower 30 bits hold the
// fraction of a second in units of 2^-30 s (roughly 0.93 ns).
//
// Example usage:
//
//	t := cdtime.New(time.Now())
//	interval := cdtime.NewDuration(10 * time.Second)
//	fmt.Println(t.Time(), interval.Duration())
package cdtime

import (
	"strconv"
	"time"
)

const (
	fractionBits = 30
	fractionMask = 1<<fractionBits - 1
	nsPerSecond  = uint64(time.Second)
)

// Time is a point in time or a duration in collectd's cdtime_t representation.
type Time uint64

// New converts a time.Time. The zero time maps to 0, which the daemon
// interprets as "now" when dispatching values.
func New(t time.Time) Time {
	if t.IsZero() {
		return 0
	}
	ns := t.UnixNano()
	if ns < 0 {
		return 0
	}
	return FromNanos(uint64(ns))
}

// NewDuration converts a time.Duration. Negative durations map to 0.
func NewDuration(d time.Duration) Time {
	if d <= 0 {
		return 0
	}
	return FromNanos(uint64(d))
}

// FromNanos converts a nanosecond count, rounding to the nearest 2^-30 s.
func FromNanos(ns uint64) Time {
	sec := ns / nsPerSecond
	frac := ((ns%nsPerSecond)<<fractionBits + nsPerSecond/2) / nsPerSecond
	return Time(sec<<fractionBits | frac)
}

// Nanos returns the value as a nanosecond count, rounding to the nearest ns.
func (t Time) Nanos() uint64 {
	sec := uint64(t) >> fractionBits
	frac := uint64(t) & fractionMask
	return sec*nsPerSecond + (frac*nsPerSecond+1<<(fractionBits-1))>>fractionBits
}

// Time returns the value as a time.Time. 0 maps to the zero time.
func (t Time) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	ns := t.Nanos()
	return time.Unix(int64(ns/nsPerSecond), int64(ns%nsPerSecond))
}

// Duration returns the value as a time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t.Nanos())
}

// String formats the value as seconds with nanosecond precision, the way
// collectd prints times in its logs.
func (t Time) String() string {
	ns := t.Nanos()
	return strconv.FormatFloat(float64(ns)/float64(nsPerSecond), 'f', 9, 64)
}
