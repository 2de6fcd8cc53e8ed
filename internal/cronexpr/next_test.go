package cronexpr

import (
	"testing"
	"time"
)

func TestNextSequences(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		spec  string
		start time.Time
		want  []time.Time
	}{
		{
			name:  "every seven seconds",
			spec:  "0/7 * * * * * *",
			start: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2026, 1, 5, 10, 0, 7, 0, time.UTC),
				time.Date(2026, 1, 5, 10, 0, 14, 0, time.UTC),
				time.Date(2026, 1, 5, 10, 0, 21, 0, time.UTC),
				time.Date(2026, 1, 5, 10, 0, 28, 0, time.UTC),
			},
		},
		{
			name:  "second list with minute step",
			spec:  "0,10,15,25,50 0/1 * * Jan-Dec * 2020-2100",
			start: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2026, 4, 1, 12, 0, 10, 0, time.UTC),
				time.Date(2026, 4, 1, 12, 0, 15, 0, time.UTC),
				time.Date(2026, 4, 1, 12, 0, 25, 0, time.UTC),
				time.Date(2026, 4, 1, 12, 0, 50, 0, time.UTC),
				time.Date(2026, 4, 1, 12, 1, 0, 0, time.UTC),
			},
		},
		{
			name:  "daily at midnight rolls month",
			spec:  "0 0 0 * * * *",
			start: time.Date(2026, 1, 30, 23, 59, 59, 0, time.UTC),
			want: []time.Time{
				time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "leap february",
			spec:  "0 0 0 29 2 * *",
			start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC),
				time.Date(2032, 2, 29, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "year gate",
			spec:  "0 0 12 1 1 * 2030",
			start: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "dom dow union",
			// Both restricted: the 15th OR any Monday fires.
			spec:  "0 0 0 15 * Mon *",
			start: time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), // Friday
			want: []time.Time{
				time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), // Monday the 15th
				time.Date(2026, 6, 22, 0, 0, 0, 0, time.UTC), // Monday
				time.Date(2026, 6, 29, 0, 0, 0, 0, time.UTC), // Monday
				time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),  // Monday
				time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC), // Monday
				time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), // the 15th
			},
		},
		{
			name: "dow alone",
			// dom is a wildcard: only the weekday restricts.
			spec:  "0 0 0 * * Sat *",
			start: time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := mustParse(t, tt.spec)
			got := tt.start
			for i, want := range tt.want {
				got = s.Next(got)
				if !got.Equal(want) {
					t.Fatalf("Next #%d = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestNextStrictlyAfter(t *testing.T) {
	t.Parallel()
	s := mustParse(t, "* * * * * * *")
	at := time.Date(2026, 8, 6, 7, 30, 15, 0, time.UTC)
	next := s.Next(at)
	if !next.Equal(at.Add(time.Second)) {
		t.Fatalf("Next(%v) = %v, want one second later", at, next)
	}

	// Sub-second input quantizes up to the next whole second.
	at = at.Add(300 * time.Millisecond)
	next = s.Next(at)
	if next.Nanosecond() != 0 || !next.After(at) {
		t.Fatalf("Next(%v) = %v, want whole second strictly after", at, next)
	}
}

func TestNextMonotone(t *testing.T) {
	t.Parallel()
	specs := []string{
		"0/7 * * * * * *",
		"0,10,15,25,50 0/1 * * Jan-Dec * 2020-2100",
		"0 0 9-17 * * Mon-Fri *",
		"@daily",
	}
	start := time.Date(2026, 2, 27, 22, 11, 3, 0, time.UTC)
	for _, spec := range specs {
		s := mustParse(t, spec)
		prev := s.Next(start)
		for i := 0; i < 50; i++ {
			next := s.Next(prev)
			if !next.After(prev) {
				t.Fatalf("%q: Next(Next(x)) = %v not after %v", spec, next, prev)
			}
			prev = next
		}
	}
}

func TestNextExhaustsYearBound(t *testing.T) {
	t.Parallel()
	s := mustParse(t, "0 0 0 1 1 * 2027")
	first := s.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if first.IsZero() {
		t.Fatal("expected one firing in 2027")
	}
	after := s.Next(first)
	if !after.IsZero() {
		t.Fatalf("expected zero time after the last firing, got %v", after)
	}
}
