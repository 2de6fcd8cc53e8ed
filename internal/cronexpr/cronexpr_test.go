package cronexpr

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, spec string) *Schedule {
	t.Helper()
	s, err := ParseInLocation(spec, time.UTC)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", spec, err)
	}
	return s
}

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec string
	}{
		{name: "wildcard", spec: "* * * * * * *"},
		{name: "literals", spec: "0 30 12 15 6 3 2030"},
		{name: "list", spec: "0,10,15,25,50 * * * * * *"},
		{name: "range", spec: "0 0 9-17 * * * *"},
		{name: "step from start", spec: "0/7 * * * * * *"},
		{name: "range with step", spec: "0 0-30/5 * * * * *"},
		{name: "wildcard step", spec: "*/15 * * * * * *"},
		{name: "month names", spec: "0 0 0 * Jan-Dec * *"},
		{name: "dow names", spec: "0 0 0 * * Mon-Fri *"},
		{name: "sunday as seven", spec: "0 0 0 * * 7 *"},
		{name: "year range", spec: "0 0 0 1 1 * 2020-2100"},
		{name: "mixed case names", spec: "0 0 0 * jAn,DEC * *"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseInLocation(tt.spec, time.UTC); err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.spec, err)
			}
		})
	}
}

func TestParseShorthands(t *testing.T) {
	t.Parallel()
	// Each shorthand must expand to its canonical 7-field form: equal Next
	// sequences prove equivalence without reaching into internals.
	tests := []struct {
		short string
		full  string
	}{
		{short: "@yearly", full: "0 0 0 1 1 * *"},
		{short: "@monthly", full: "0 0 0 1 * * *"},
		{short: "@weekly", full: "0 0 0 * * 0 *"},
		{short: "@daily", full: "0 0 0 * * * *"},
		{short: "@hourly", full: "0 0 * * * * *"},
		{short: "@minutely", full: "0 * * * * * *"},
		{short: "@secondly", full: "* * * * * * *"},
	}

	start := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.short, func(t *testing.T) {
			t.Parallel()
			a := mustParse(t, tt.short)
			b := mustParse(t, tt.full)
			at, bt := start, start
			for i := 0; i < 4; i++ {
				at, bt = a.Next(at), b.Next(bt)
				if !at.Equal(bt) {
					t.Fatalf("step %d: %s gave %v, %s gave %v", i, tt.short, at, tt.full, bt)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec string
	}{
		{name: "empty", spec: ""},
		{name: "too few fields", spec: "* * * * *"},
		{name: "too many fields", spec: "* * * * * * * *"},
		{name: "unknown shorthand", spec: "@fortnightly"},
		{name: "second out of range", spec: "60 * * * * * *"},
		{name: "hour out of range", spec: "0 0 24 * * * *"},
		{name: "dom zero", spec: "0 0 0 0 * * *"},
		{name: "bad month name", spec: "0 0 0 * Janvier * *"},
		{name: "descending range", spec: "0 30-10 * * * * *"},
		{name: "zero step", spec: "*/0 * * * * * *"},
		{name: "garbage", spec: "a b c d e f g"},
		{name: "year below epoch", spec: "0 0 0 * * * 1969"},
		{name: "year beyond bound", spec: "0 0 0 * * * 2101"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseInLocation(tt.spec, time.UTC)
			if err == nil {
				t.Fatalf("Parse(%q): expected error", tt.spec)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse(%q): error %T is not *ParseError", tt.spec, err)
			}
		})
	}
}
