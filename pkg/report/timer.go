package report

import (
	"strconv"
	"strings"
)

// Breakdown is an elapsed nanosecond count split into calendar-ish units.
type Breakdown struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Millis  int64
	Micros  int64
	Nanos   int64
}

// Decompose splits ns by 1000, 1000, 1000, 60, 60 and 24. Negative input
// decomposes as zero.
func Decompose(ns int64) Breakdown {
	if ns < 0 {
		ns = 0
	}
	var b Breakdown
	b.Nanos, ns = ns%1000, ns/1000
	b.Micros, ns = ns%1000, ns/1000
	b.Millis, ns = ns%1000, ns/1000
	b.Seconds, ns = ns%60, ns/60
	b.Minutes, ns = ns%60, ns/60
	b.Hours, b.Days = ns%24, ns/24
	return b
}

// Nanoseconds reassembles the original count.
func (b Breakdown) Nanoseconds() int64 {
	n := b.Days
	n = n*24 + b.Hours
	n = n*60 + b.Minutes
	n = n*60 + b.Seconds
	n = n*1000 + b.Millis
	n = n*1000 + b.Micros
	return n*1000 + b.Nanos
}

// String lists the non-zero units, largest first: "1 minutes 1 seconds".
// Zero renders as the empty string.
func (b Breakdown) String() string {
	units := []struct {
		v     int64
		label string
	}{
		{b.Days, "days"},
		{b.Hours, "hours"},
		{b.Minutes, "minutes"},
		{b.Seconds, "seconds"},
		{b.Millis, "millis"},
		{b.Micros, "micros"},
		{b.Nanos, "nanos"},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.v == 0 {
			continue
		}
		parts = append(parts, strconv.FormatInt(u.v, 10)+" "+u.label)
	}
	return strings.Join(parts, " ")
}
