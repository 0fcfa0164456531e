package pattern

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseRange parses a numeric range operand:
//
//	N      exactly N
//	N-     N or more
//	-N     at most N
//	N-M    from N to M
//	<N     less than N
//	>N     more than N
//	=N     exactly N
//
// Every number may carry a K (x1024) or M (x1048576) suffix.
func parseRange(s string) (NumberRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NumberRange{}, fmt.Errorf("empty range")
	}

	switch s[0] {
	case '<', '>', '=':
		n, err := parseWholeNumber(s[1:])
		if err != nil {
			return NumberRange{}, err
		}
		switch s[0] {
		case '<':
			return NumberRange{Min: RangeMin, Max: n - 1}, nil
		case '>':
			if n == RangeMax {
				return NumberRange{}, fmt.Errorf("empty range %q", s)
			}
			return NumberRange{Min: n + 1, Max: RangeMax}, nil
		default:
			return NumberRange{Min: n, Max: n}, nil
		}
	case '-':
		n, err := parseWholeNumber(s[1:])
		if err != nil {
			return NumberRange{}, err
		}
		return NumberRange{Min: RangeMin, Max: n}, nil
	}

	min, rest, err := parseNumber(s)
	if err != nil {
		return NumberRange{}, err
	}
	if rest == "" {
		return NumberRange{Min: min, Max: min}, nil
	}
	if rest[0] != '-' {
		return NumberRange{}, fmt.Errorf("unexpected %q", rest)
	}
	if rest == "-" {
		return NumberRange{Min: min, Max: RangeMax}, nil
	}
	max, err := parseWholeNumber(rest[1:])
	if err != nil {
		return NumberRange{}, err
	}
	if min > max {
		return NumberRange{}, fmt.Errorf("range %q starts after it ends", s)
	}
	return NumberRange{Min: min, Max: max}, nil
}

func parseWholeNumber(s string) (int64, error) {
	n, rest, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("unexpected %q", rest)
	}
	return n, nil
}

// parseNumber parses leading digits with an optional size suffix.
func parseNumber(s string) (int64, string, error) {
	digits := leadingDigits(s)
	if digits == 0 {
		return 0, "", fmt.Errorf("expected a number in %q", s)
	}
	n, err := strconv.ParseInt(s[:digits], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("number %q: %w", s[:digits], err)
	}

	rest := s[digits:]
	if rest != "" {
		var mult int64
		switch rest[0] {
		case 'k', 'K':
			mult = 1024
		case 'm', 'M':
			mult = 1024 * 1024
		}
		if mult != 0 {
			if n > math.MaxInt64/mult {
				return 0, "", fmt.Errorf("number %q out of range", s[:digits+1])
			}
			n *= mult
			rest = rest[1:]
		}
	}
	return n, rest, nil
}
