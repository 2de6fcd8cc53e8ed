package cronexpr

import (
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

// TestNextAgainstRobfig cross-checks the evaluator against robfig/cron on the
// shared six-field subset (our seven-field specs with a wildcard year).
func TestNextAgainstRobfig(t *testing.T) {
	t.Parallel()
	specs := []string{
		"0/7 * * * * *",
		"*/15 * * * * *",
		"0 30 12 * * *",
		"0 0 9-17 * * 1-5",
		"0,10,15,25,50 0/1 * * * *",
		"0 0 0 1 Jan-Dec *",
		"0 0 0 15 * Mon",
		"0 5 4 29 2 *",
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	start := time.Date(2026, 3, 9, 8, 59, 55, 0, time.UTC)

	for _, six := range specs {
		six := six
		t.Run(strings.ReplaceAll(six, " ", "_"), func(t *testing.T) {
			t.Parallel()
			oracle, err := parser.Parse(six)
			if err != nil {
				t.Fatalf("oracle parse %q: %v", six, err)
			}
			// robfig evaluates in time.Local by default; match it so the
			// produced instants are comparable.
			ours, err := Parse(six + " *")
			if err != nil {
				t.Fatalf("parse %q: %v", six+" *", err)
			}

			ot, ut := start, start
			for i := 0; i < 40; i++ {
				ot = oracle.Next(ot)
				ut = ours.Next(ut)
				if !ut.Equal(ot) {
					t.Fatalf("%q diverged at step %d: ours %v, oracle %v", six, i, ut, ot)
				}
			}
		})
	}
}
