package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RelativeDate is a date bound relative to the evaluation time:
//
//	<3d  newer than three days ago
//	>3d  older than three days ago
//	=3d  on the day three days ago
//
// Units are y (years), m (months), w (weeks), d (days), H (hours),
// M (minutes) and S (seconds). For day-based units "ago" is counted from
// the end of the current day.
type RelativeDate struct {
	Op     byte
	Amount int
	Unit   byte
}

func (r RelativeDate) String() string {
	return fmt.Sprintf("%c%d%c", r.Op, r.Amount, r.Unit)
}

// Bounds resolves the relative date against now. Open ends are zero.
func (r RelativeDate) Bounds(now time.Time) (min, max time.Time) {
	base := now
	if !isTimeUnit(r.Unit) {
		base = endOfDay(now)
	}
	point := shift(base, -r.Amount, r.Unit)

	switch r.Op {
	case '<':
		return point, time.Time{}
	case '>':
		return time.Time{}, point
	default:
		return startOfDay(point), point
	}
}

func isTimeUnit(unit byte) bool {
	return unit == 'H' || unit == 'M' || unit == 'S'
}

func isDateUnit(unit byte) bool {
	return strings.IndexByte("ymwdHMS", unit) >= 0
}

func shift(t time.Time, n int, unit byte) time.Time {
	switch unit {
	case 'y':
		return t.AddDate(n, 0, 0)
	case 'm':
		return t.AddDate(0, n, 0)
	case 'w':
		return t.AddDate(0, 0, 7*n)
	case 'd':
		return t.AddDate(0, 0, n)
	case 'H':
		return t.Add(time.Duration(n) * time.Hour)
	case 'M':
		return t.Add(time.Duration(n) * time.Minute)
	default:
		return t.Add(time.Duration(n) * time.Second)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// parseDateRange parses a date operand. Absolute dates are resolved in
// now's location, and missing month or year default to now's.
//
// Accepted forms:
//
//	D          the whole day D
//	D-         D or later
//	-D         D or earlier
//	D1-D2      from D1 to D2
//	D+1w       D to a week after D (also -1w before, *1w both ways)
//	<Nu >Nu =Nu  relative to the evaluation time
//
// where D is DD[/MM[/[CC]YY]] or YYYYMMDD.
func parseDateRange(s string, now time.Time) (DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateRange{}, fmt.Errorf("empty date")
	}

	if strings.IndexByte("<>=", s[0]) >= 0 {
		rel, err := parseRelative(s)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{Relative: &rel}, nil
	}

	if s[0] == '-' {
		_, max, rest, err := parseDay(s[1:], now)
		if err != nil {
			return DateRange{}, err
		}
		if rest != "" {
			return DateRange{}, fmt.Errorf("unexpected %q", rest)
		}
		return DateRange{Max: max}, nil
	}

	min, max, rest, err := parseDay(s, now)
	if err != nil {
		return DateRange{}, err
	}
	if rest == "" {
		return DateRange{Min: min, Max: max}, nil
	}
	if rest[0] != '-' {
		return DateRange{}, fmt.Errorf("unexpected %q", rest)
	}

	rest = rest[1:]
	if rest == "" {
		return DateRange{Min: min}, nil
	}
	_, max, rest, err = parseDay(rest, now)
	if err != nil {
		return DateRange{}, err
	}
	if rest != "" {
		return DateRange{}, fmt.Errorf("unexpected %q", rest)
	}
	if min.After(max) {
		return DateRange{}, fmt.Errorf("range starts after it ends")
	}
	return DateRange{Min: min, Max: max}, nil
}

// parseDay parses one absolute date with an optional error margin and
// returns the covered interval and the unparsed remainder.
func parseDay(s string, now time.Time) (min, max time.Time, rest string, err error) {
	day, rest, err := parseAbsolute(s, now)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	min, max = day, endOfDay(day)

	if rest == "" {
		return min, max, rest, nil
	}
	sign := rest[0]
	if sign != '+' && sign != '-' && sign != '*' {
		return min, max, rest, nil
	}
	amount, unit, after, ok := parseOffset(rest[1:])
	if !ok {
		if sign == '-' {
			return min, max, rest, nil
		}
		return time.Time{}, time.Time{}, "", fmt.Errorf("invalid error margin %q", rest)
	}
	if sign == '-' && after != "" && after[0] != '-' {
		return min, max, rest, nil
	}
	if sign == '+' || sign == '*' {
		max = shift(max, amount, unit)
	}
	if sign == '-' || sign == '*' {
		min = shift(min, -amount, unit)
	}
	return min, max, after, nil
}

// parseAbsolute parses DD[/MM[/[CC]YY]] or YYYYMMDD.
func parseAbsolute(s string, now time.Time) (time.Time, string, error) {
	digits := leadingDigits(s)
	if digits == 8 {
		t, err := time.ParseInLocation("20060102", s[:8], now.Location())
		if err != nil {
			return time.Time{}, "", fmt.Errorf("invalid date %q", s[:8])
		}
		return t, s[8:], nil
	}
	if digits == 0 || digits > 2 {
		return time.Time{}, "", fmt.Errorf("invalid date %q", s)
	}

	day, _ := strconv.Atoi(s[:digits])
	rest := s[digits:]
	year, month := now.Year(), int(now.Month())

	if strings.HasPrefix(rest, "/") {
		n := leadingDigits(rest[1:])
		if n == 0 || n > 2 {
			return time.Time{}, "", fmt.Errorf("invalid month in %q", s)
		}
		month, _ = strconv.Atoi(rest[1 : 1+n])
		rest = rest[1+n:]

		if strings.HasPrefix(rest, "/") {
			n = leadingDigits(rest[1:])
			if n != 2 && n != 4 {
				return time.Time{}, "", fmt.Errorf("invalid year in %q", s)
			}
			year, _ = strconv.Atoi(rest[1 : 1+n])
			if n == 2 {
				if year < 70 {
					year += 2000
				} else {
					year += 1900
				}
			}
			rest = rest[1+n:]
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, "", fmt.Errorf("invalid date %q", s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if t.Day() != day {
		return time.Time{}, "", fmt.Errorf("invalid date %q", s)
	}
	return t, rest, nil
}

// parseRelative parses "<Nu", ">Nu" or "=Nu" covering the whole string.
func parseRelative(s string) (RelativeDate, error) {
	amount, unit, rest, ok := parseOffset(s[1:])
	if !ok || rest != "" {
		return RelativeDate{}, fmt.Errorf("invalid relative date %q", s)
	}
	return RelativeDate{Op: s[0], Amount: amount, Unit: unit}, nil
}

// parseOffset parses N followed by a unit letter.
func parseOffset(s string) (amount int, unit byte, rest string, ok bool) {
	n := leadingDigits(s)
	if n == 0 || n >= len(s) || !isDateUnit(s[n]) {
		return 0, 0, s, false
	}
	amount, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, 0, s, false
	}
	return amount, s[n], s[n+1:], true
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
