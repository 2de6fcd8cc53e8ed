package cronexpr

import (
	"strconv"
	"strings"
	"time"
)

// Year bounds for the seventh field.
const (
	YearMin = 1970
	YearMax = 2100
)

// Schedule is a parsed cron expression. It is immutable and safe for
// concurrent use.
type Schedule struct {
	spec string
	loc  *time.Location

	second uint64 // bits 0..59
	minute uint64 // bits 0..59
	hour   uint64 // bits 0..23
	dom    uint64 // bits 1..31
	month  uint64 // bits 1..12
	dow    uint64 // bits 0..6, Sunday=0

	years [YearMax - YearMin + 1]bool

	domStar bool
	dowStar bool
}

var shorthands = map[string]string{
	"@yearly":   "0 0 0 1 1 * *",
	"@annually": "0 0 0 1 1 * *",
	"@monthly":  "0 0 0 1 * * *",
	"@weekly":   "0 0 0 * * 0 *",
	"@daily":    "0 0 0 * * * *",
	"@midnight": "0 0 0 * * * *",
	"@hourly":   "0 0 * * * * *",
	"@minutely": "0 * * * * * *",
	"@secondly": "* * * * * * *",
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dowNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// Parse parses spec in the local time zone.
func Parse(spec string) (*Schedule, error) {
	return ParseInLocation(spec, time.Local)
}

// ParseInLocation parses spec; all firing instants are evaluated in loc.
func ParseInLocation(spec string, loc *time.Location) (*Schedule, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return nil, parseErr(spec, "", "empty expression")
	}
	if strings.HasPrefix(raw, "@") {
		exp, ok := shorthands[strings.ToLower(raw)]
		if !ok {
			return nil, parseErr(spec, "", "unknown shorthand %q", raw)
		}
		raw = exp
	}

	fields := strings.Fields(raw)
	if len(fields) != 7 {
		return nil, parseErr(spec, "", "expected 7 fields (second minute hour dom month dow year), got %d", len(fields))
	}

	s := &Schedule{spec: spec, loc: loc}

	var err error
	if s.second, _, err = parseField(spec, "second", fields[0], 0, 59, nil); err != nil {
		return nil, err
	}
	if s.minute, _, err = parseField(spec, "minute", fields[1], 0, 59, nil); err != nil {
		return nil, err
	}
	if s.hour, _, err = parseField(spec, "hour", fields[2], 0, 23, nil); err != nil {
		return nil, err
	}
	if s.dom, s.domStar, err = parseField(spec, "day-of-month", fields[3], 1, 31, nil); err != nil {
		return nil, err
	}
	if s.month, _, err = parseField(spec, "month", fields[4], 1, 12, monthNames); err != nil {
		return nil, err
	}
	if s.dow, s.dowStar, err = parseField(spec, "day-of-week", fields[5], 0, 7, dowNames); err != nil {
		return nil, err
	}
	// 7 is an alias for Sunday.
	if s.dow&(1<<7) != 0 {
		s.dow = (s.dow &^ (1 << 7)) | 1
	}
	if err = s.parseYears(spec, fields[6]); err != nil {
		return nil, err
	}

	return s, nil
}

// Spec returns the original expression string.
func (s *Schedule) Spec() string { return s.spec }

// Location returns the evaluation time zone.
func (s *Schedule) Location() *time.Location { return s.loc }

// parseField parses one of the first six fields into a bitmask.
// The star result reports whether the field was unrestricted ("*" or "*/1").
func parseField(spec, name, expr string, min, max int, names map[string]int) (mask uint64, star bool, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, false, parseErr(spec, name, "empty field")
	}

	for _, term := range strings.Split(expr, ",") {
		lo, hi, step, isStar, terr := parseTerm(spec, name, term, min, max, names)
		if terr != nil {
			return 0, false, terr
		}
		if isStar && step == 1 && len(expr) == len(term) {
			star = true
		}
		for v := lo; v <= hi; v += step {
			mask |= 1 << uint(v)
		}
	}
	return mask, star, nil
}

// parseTerm handles "*", "*/s", "a", "a-b", "a/s", "a-b/s".
func parseTerm(spec, name, term string, min, max int, names map[string]int) (lo, hi, step int, star bool, err error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return 0, 0, 0, false, parseErr(spec, name, "empty term")
	}

	step = 1
	rangePart := term
	if i := strings.IndexByte(term, '/'); i >= 0 {
		rangePart = term[:i]
		stepPart := term[i+1:]
		step, err = strconv.Atoi(stepPart)
		if err != nil || step <= 0 {
			return 0, 0, 0, false, parseErr(spec, name, "invalid step %q", stepPart)
		}
	}

	switch {
	case rangePart == "*":
		lo, hi, star = min, max, true
	case strings.Contains(rangePart, "-"):
		parts := strings.SplitN(rangePart, "-", 2)
		lo, err = parseValue(parts[0], names)
		if err != nil {
			return 0, 0, 0, false, parseErr(spec, name, "invalid value %q", parts[0])
		}
		hi, err = parseValue(parts[1], names)
		if err != nil {
			return 0, 0, 0, false, parseErr(spec, name, "invalid value %q", parts[1])
		}
		if lo > hi {
			return 0, 0, 0, false, parseErr(spec, name, "descending range %q", rangePart)
		}
	default:
		lo, err = parseValue(rangePart, names)
		if err != nil {
			return 0, 0, 0, false, parseErr(spec, name, "invalid value %q", rangePart)
		}
		// "a/s" means start at a, step through the field maximum.
		if strings.IndexByte(term, '/') >= 0 {
			hi = max
		} else {
			hi = lo
		}
	}

	if lo < min || hi > max {
		return 0, 0, 0, false, parseErr(spec, name, "value out of range [%d,%d] in %q", min, max, term)
	}
	return lo, hi, step, star, nil
}

func parseValue(s string, names map[string]int) (int, error) {
	s = strings.TrimSpace(s)
	if names != nil {
		if v, ok := names[strings.ToLower(s)]; ok {
			return v, nil
		}
	}
	return strconv.Atoi(s)
}

func (s *Schedule) parseYears(spec, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return parseErr(spec, "year", "empty field")
	}

	for _, term := range strings.Split(expr, ",") {
		lo, hi, step, _, err := parseTerm(spec, "year", term, YearMin, YearMax, nil)
		if err != nil {
			return err
		}
		for y := lo; y <= hi; y += step {
			s.years[y-YearMin] = true
		}
	}
	return nil
}

func (s *Schedule) yearAllowed(y int) bool {
	if y < YearMin || y > YearMax {
		return false
	}
	return s.years[y-YearMin]
}
