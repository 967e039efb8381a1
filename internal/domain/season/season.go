// Package season defines the competitive season identifier and the
// settlement period arithmetic built on it.
//
// A season spans two calendar years and is written "YYYY-YYYY", e.g.
// "2025-2026". Seasons compare by their leading year.
package season

import (
	"fmt"
	"regexp"
	"strconv"

	"ratingd/pkg/fault"
)

// Pattern is the accepted season format.
var Pattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// Season identifies one competitive year, e.g. "2025-2026".
type Season string

// Parse validates raw against Pattern and returns it as a Season.
func Parse(raw string) (Season, error) {
	if !Pattern.MatchString(raw) {
		return "", fault.New(fault.Validation, "season %q does not match YYYY-YYYY", raw)
	}
	return Season(raw), nil
}

// MustParse is Parse for static strings; it panics on malformed input.
func MustParse(raw string) Season {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the raw season identifier.
func (s Season) String() string { return string(s) }

// StartYear returns the leading year of the season. Malformed seasons
// yield 0 so that distance math degrades to zero rather than failing.
func (s Season) StartYear() int {
	if !Pattern.MatchString(string(s)) {
		return 0
	}
	year, _ := strconv.Atoi(string(s)[:4])
	return year
}

// Next returns the season immediately following this one.
func (s Season) Next() Season {
	start := s.StartYear()
	return Season(fmt.Sprintf("%04d-%04d", start+1, start+2))
}

// Distance returns how many seasons in the past other lies relative to
// base. A future or equal season yields 0; the result is never negative.
func Distance(base, other Season) int {
	d := base.StartYear() - other.StartYear()
	if d < 0 {
		return 0
	}
	return d
}

// Period identifies one settlement period (a calendar month).
type Period struct {
	Year  int
	Month int // 1-12
}

// Previous returns the period immediately before p. January wraps to
// December of the prior year.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// String renders the period as "YYYY-MM" for logs and cursors.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Valid reports whether the period denotes a real calendar month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= 1 && p.Month <= 12
}
