// Package sla turns the free-form time objectives configured on services into
// durations and computes deadlines, remaining time and on-time classification.
package sla

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags which encoding an Objective was parsed from.
type Kind uint8

const (
	KindUnparseable Kind = iota
	KindMinutes
	KindDays
)

func (k Kind) String() string {
	switch k {
	case KindMinutes:
		return "minutes"
	case KindDays:
		return "days"
	}
	return "unparseable"
}

// ParseKind is the inverse of Kind.String; unknown names map to KindUnparseable.
func ParseKind(name string) Kind {
	switch name {
	case "minutes":
		return KindMinutes
	case "days":
		return KindDays
	}
	return KindUnparseable
}

// MinutesPerDay is the factor applied to day-count objectives.
const MinutesPerDay = 24 * 60

// Objective is a parsed time objective. Value holds minutes for KindMinutes
// (fractional minutes allowed) and a whole day count for KindDays.
type Objective struct {
	Kind  Kind
	Value float64
}

// Unparseable is the zero Objective: SLA math does not apply.
var Unparseable = Objective{}

// Minutes builds a minutes objective.
func Minutes(n float64) Objective {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return Unparseable
	}
	return Objective{Kind: KindMinutes, Value: n}
}

// Days builds a day-count objective.
func Days(n int) Objective {
	if n < 0 {
		return Unparseable
	}
	return Objective{Kind: KindDays, Value: float64(n)}
}

// Valid reports whether the objective can be used for deadline math.
func (o Objective) Valid() bool {
	return o.Kind != KindUnparseable
}

// Minutes returns the objective in minutes.
func (o Objective) Minutes() (float64, bool) {
	switch o.Kind {
	case KindMinutes:
		return o.Value, true
	case KindDays:
		return o.Value * MinutesPerDay, true
	}
	return 0, false
}

// Seconds returns the objective in seconds.
func (o Objective) Seconds() (float64, bool) {
	m, ok := o.Minutes()
	if !ok {
		return 0, false
	}
	return m * 60, true
}

// maxSpanSeconds bounds the span used in deadline arithmetic so that adding it
// to any Unix time stays inside int64.
const maxSpanSeconds = 1 << 62

// Duration returns the objective as a time.Duration rounded to the nanosecond.
// Objectives longer than time.Duration can hold saturate at its maximum; use
// Deadline and Remaining for arithmetic on long objectives.
func (o Objective) Duration() (time.Duration, bool) {
	m, ok := o.Minutes()
	if !ok {
		return 0, false
	}
	ns := math.Round(m * float64(time.Minute))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(ns), true
}

// span splits the objective into whole seconds and a nanosecond remainder.
func (o Objective) span() (secs, nanos int64, ok bool) {
	total, ok := o.Seconds()
	if !ok {
		return 0, 0, false
	}
	if total >= maxSpanSeconds {
		return maxSpanSeconds, 0, true
	}
	whole := math.Floor(total)
	return int64(whole), int64(math.Round((total - whole) * float64(time.Second))), true
}

func (o Objective) String() string {
	switch o.Kind {
	case KindMinutes:
		return strconv.FormatFloat(o.Value, 'f', -1, 64) + "m"
	case KindDays:
		return fmt.Sprintf("%dd", int(o.Value))
	}
	return ""
}
