package orderlist

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PeriodKey identifies a calendar sub-period in YYYY-NN form, optionally
// followed by an uppercase type marker (e.g. "2024-03T").
type PeriodKey string

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})([A-Z]*)$`)

// MaxPeriodNumber is the highest sub-period number accepted in a key.
const MaxPeriodNumber = 53

// ParsePeriodKey validates s and returns it as a PeriodKey.
func ParsePeriodKey(s string) (PeriodKey, error) {
	s = strings.TrimSpace(s)
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return "", validationError("invalid period key %q: expected YYYY-NN", s)
	}
	n, _ := strconv.Atoi(m[2])
	if n < 1 || n > MaxPeriodNumber {
		return "", validationError("invalid period key %q: period number out of range", s)
	}
	return PeriodKey(s), nil
}

// PeriodFromTime truncates t to its calendar month and appends marker.
func PeriodFromTime(t time.Time, marker string) PeriodKey {
	return PeriodKey(fmt.Sprintf("%04d-%02d%s", t.Year(), int(t.Month()), marker))
}

// Year returns the year component, or 0 for a malformed key.
func (p PeriodKey) Year() int {
	y, _, _ := p.parts()
	return y
}

// Number returns the sub-period number, or 0 for a malformed key.
func (p PeriodKey) Number() int {
	_, n, _ := p.parts()
	return n
}

// Marker returns the trailing type marker, if any.
func (p PeriodKey) Marker() string {
	_, _, m := p.parts()
	return m
}

// String returns the key as stored.
func (p PeriodKey) String() string {
	return string(p)
}

func (p PeriodKey) parts() (int, int, string) {
	m := periodPattern.FindStringSubmatch(string(p))
	if m == nil {
		return 0, 0, ""
	}
	y, _ := strconv.Atoi(m[1])
	n, _ := strconv.Atoi(m[2])
	return y, n, m[3]
}

// ComparePeriods orders keys by (year, number). The marker only breaks ties
// so that sorting stays deterministic.
func ComparePeriods(a, b PeriodKey) int {
	ay, an, am := a.parts()
	by, bn, bm := b.parts()
	if c := cmp.Compare(ay, by); c != 0 {
		return c
	}
	if c := cmp.Compare(an, bn); c != 0 {
		return c
	}
	return cmp.Compare(am, bm)
}

// SortPeriods sorts keys chronologically in place.
func SortPeriods(periods []PeriodKey) {
	slices.SortFunc(periods, ComparePeriods)
}
