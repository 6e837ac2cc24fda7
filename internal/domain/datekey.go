package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateKey identifies a calendar day by year and day of year.
type DateKey struct {
	Year int
	DOY  int
}

// ParseDateKey parses a "YYYY-DDD" key such as "2022-153".
func ParseDateKey(s string) (DateKey, error) {
	yearStr, doyStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(yearStr) != 4 || len(doyStr) != 3 {
		return DateKey{}, fmt.Errorf("date key %q: want YYYY-DDD", s)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return DateKey{}, fmt.Errorf("date key %q: year: %w", s, err)
	}
	doy, err := strconv.Atoi(doyStr)
	if err != nil {
		return DateKey{}, fmt.Errorf("date key %q: day of year: %w", s, err)
	}
	if doy < 1 || doy > daysInYear(year) {
		return DateKey{}, fmt.Errorf("date key %q: day of year out of range", s)
	}
	return DateKey{Year: year, DOY: doy}, nil
}

// DateKeyFromTime returns the key for the UTC calendar day containing t.
func DateKeyFromTime(t time.Time) DateKey {
	t = t.UTC()
	return DateKey{Year: t.Year(), DOY: t.YearDay()}
}

func (k DateKey) String() string {
	return fmt.Sprintf("%04d-%03d", k.Year, k.DOY)
}

// Time returns UTC midnight of the keyed day.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, k.DOY-1)
}

func daysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
