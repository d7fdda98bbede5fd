package sla

import (
	"strings"
	"time"
)

// Bounds resolves the two objectives a service carries. The enforcement bound
// is the maximum time when it is configured and parseable, else the target
// time; the target bound is always the target time.
func Bounds(maximumTime, targetTime string) (enforce, target Objective) {
	target = Parse(targetTime)
	if strings.TrimSpace(maximumTime) != "" {
		if maximum := Parse(maximumTime); maximum.Valid() {
			return maximum, target
		}
	}
	return target, target
}

// Deadline returns createdAt plus the objective. The sum is taken on Unix
// seconds, so objectives beyond the range of time.Duration stay in the future.
func Deadline(createdAt time.Time, o Objective) (time.Time, bool) {
	secs, nanos, ok := o.span()
	if !ok {
		return time.Time{}, false
	}
	deadline := time.Unix(createdAt.Unix()+secs, int64(createdAt.Nanosecond())+nanos)
	return deadline.In(createdAt.Location()), true
}

// Remaining returns the signed whole seconds between now and the deadline,
// truncated toward zero. Negative values mean the ticket is overdue.
func Remaining(createdAt time.Time, o Objective, now time.Time) (int64, bool) {
	deadline, ok := Deadline(createdAt, o)
	if !ok {
		return 0, false
	}
	return secondsBetween(now, deadline), true
}

// OnTime reports whether a ticket closed at closedAt stayed within the
// objective. It is nil when closedAt is absent or the objective is unparseable.
func OnTime(createdAt time.Time, closedAt *time.Time, o Objective) *bool {
	if closedAt == nil {
		return nil
	}
	deadline, ok := Deadline(createdAt, o)
	if !ok {
		return nil
	}
	within := !closedAt.After(deadline)
	return &within
}

// secondsBetween is to minus from in whole seconds without going through
// time.Duration, which saturates after about 292 years.
func secondsBetween(from, to time.Time) int64 {
	secs := to.Unix() - from.Unix()
	nanos := to.Nanosecond() - from.Nanosecond()
	switch {
	case secs > 0 && nanos < 0:
		secs--
	case secs < 0 && nanos > 0:
		secs++
	}
	return secs
}
