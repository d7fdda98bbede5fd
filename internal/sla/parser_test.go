package sla

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		kind    Kind
		invalid bool
	}{
		{name: "bare minutes", raw: "45", want: 45, kind: KindMinutes},
		{name: "bare fractional minutes", raw: "7.5", want: 7.5, kind: KindMinutes},
		{name: "days with accent", raw: "30 días", want: 43200, kind: KindDays},
		{name: "day singular", raw: "1 día", want: 1440, kind: KindDays},
		{name: "days without accent", raw: "2 dias", want: 2880, kind: KindDays},
		{name: "days upper case", raw: "3 DÍAS", want: 4320, kind: KindDays},
		{name: "clock with seconds", raw: "01:30:00", want: 90, kind: KindMinutes},
		{name: "clock without seconds", raw: "02:15", want: 135, kind: KindMinutes},
		{name: "clock with fractional minute", raw: "00:00:30", want: 0.5, kind: KindMinutes},
		{name: "leading number fallback", raw: "90 minutos", want: 90, kind: KindMinutes},
		{name: "days and clock keeps days only", raw: "2 días 01:00", want: 2880, kind: KindDays},
		{name: "garbage", raw: "abc", invalid: true},
		{name: "empty", raw: "   ", invalid: true},
		{name: "day word without number", raw: "días", invalid: true},
		{name: "malformed clock", raw: "aa:bb", invalid: true},
		{name: "too many clock parts", raw: "1:2:3:4", invalid: true},
		{name: "negative minutes", raw: "-5", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Parse(tt.raw)
			got, ok := o.Minutes()
			if tt.invalid {
				assert.False(t, ok)
				assert.False(t, o.Valid())
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.kind, o.Kind)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDaysProperty(t *testing.T) {
	for n := 0; n <= 60; n++ {
		for _, word := range []string{"días", "dias", "día", "dia"} {
			got, ok := ParseMinutes(fmt.Sprintf("%d %s", n, word))
			require.True(t, ok)
			assert.Equal(t, float64(n*1440), got)
		}
	}
}

func TestParseClockProperty(t *testing.T) {
	for h := 0; h < 48; h += 7 {
		for m := 0; m < 60; m += 13 {
			for s := 0; s < 60; s += 17 {
				got, ok := ParseMinutes(fmt.Sprintf("%02d:%02d:%02d", h, m, s))
				require.True(t, ok)
				assert.InDelta(t, float64(h*60+m)+float64(s)/60, got, 1e-9)
			}
		}
	}
}

func TestParseSeconds(t *testing.T) {
	got, ok := ParseSeconds("01:30:15")
	require.True(t, ok)
	assert.InDelta(t, 5415, got, 1e-9)

	_, ok = ParseSeconds("abc")
	assert.False(t, ok)
}

func TestObjectiveKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindUnparseable, KindMinutes, KindDays} {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, "2d", Days(2).String())
	assert.Equal(t, "90m", Minutes(90).String())
	assert.Equal(t, "", Unparseable.String())
}
