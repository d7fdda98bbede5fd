package sla

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dayWords      = []string{"días", "dias", "día", "dia"}
	firstInteger  = regexp.MustCompile(`\d+`)
	leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)
)

// Parse converts a target or maximum time string into an Objective.
//
// Rules are applied in order: a bare number is minutes; a string mentioning
// days takes its first integer as a day count; a string with ':' is read as
// HH:MM[:SS]; anything else falls back to its leading number. A string that
// mentions days and also contains ':' is read as days only.
func Parse(raw string) Objective {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Unparseable
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return Minutes(n)
	}

	lower := strings.ToLower(value)
	for _, word := range dayWords {
		if strings.Contains(lower, word) {
			digits := firstInteger.FindString(lower)
			if digits == "" {
				return Unparseable
			}
			n, err := strconv.Atoi(digits)
			if err != nil {
				return Unparseable
			}
			return Days(n)
		}
	}

	if strings.Contains(value, ":") {
		return parseClock(value)
	}

	if m := leadingNumber.FindStringSubmatch(value); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Minutes(n)
		}
	}
	return Unparseable
}

// ParseNumber handles objectives already stored as a number of minutes.
func ParseNumber(minutes float64) Objective {
	return Minutes(minutes)
}

// ParseMinutes returns the objective in minutes, or false when it cannot be computed.
func ParseMinutes(raw string) (float64, bool) {
	return Parse(raw).Minutes()
}

// ParseSeconds is ParseMinutes scaled to seconds, for live countdowns.
func ParseSeconds(raw string) (float64, bool) {
	return Parse(raw).Seconds()
}

func parseClock(value string) Objective {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Unparseable
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return Unparseable
		}
		nums[i] = n
	}
	return Minutes(float64(nums[0]*60+nums[1]) + float64(nums[2])/60)
}
