package domain

import (
	"math"
	"sort"
)

// Series is a date × depth table of fractional values: water content as
// observed, or deficit as derived. Columns are date keys and rows are
// layer-bottom depths in centimeters, both in insertion order. A Series is
// immutable once built; transforms return new values.
type Series struct {
	dates  []string
	depths []int
	values map[string]map[int]float64
}

// DepthValue is one cell of a series column.
type DepthValue struct {
	Depth int
	Value float64
}

// Dates returns the date keys in column order.
func (s Series) Dates() []string { return append([]string(nil), s.dates...) }

// Depths returns the depth keys (cm) in row order.
func (s Series) Depths() []int { return append([]int(nil), s.depths...) }

// Len returns the number of date columns.
func (s Series) Len() int { return len(s.dates) }

// Empty reports whether the series has no cells.
func (s Series) Empty() bool { return len(s.dates) == 0 || len(s.depths) == 0 }

// HasDate reports whether date is one of the series columns.
func (s Series) HasDate(date string) bool {
	_, ok := s.values[date]
	return ok
}

// Value returns the cell at (date, depth). ok is false when either key is
// not part of the series; a present but unset cell returns NaN and true.
func (s Series) Value(date string, depth int) (v float64, ok bool) {
	col, ok := s.values[date]
	if !ok {
		return math.NaN(), false
	}
	v, ok = col[depth]
	if !ok {
		if s.hasDepth(depth) {
			return math.NaN(), true
		}
		return math.NaN(), false
	}
	return v, true
}

// Column returns the cells of one date in row order.
func (s Series) Column(date string) []DepthValue {
	col := s.values[date]
	out := make([]DepthValue, len(s.depths))
	for i, d := range s.depths {
		v, ok := col[d]
		if !ok {
			v = math.NaN()
		}
		out[i] = DepthValue{Depth: d, Value: v}
	}
	return out
}

func (s Series) hasDepth(depth int) bool {
	for _, d := range s.depths {
		if d == depth {
			return true
		}
	}
	return false
}

// Sorted returns a copy with dates in chronological order and depth rows
// ascending. Date keys are fixed width, so lexical order is chronological.
func (s Series) Sorted() Series {
	out := Series{
		dates:  append([]string(nil), s.dates...),
		depths: append([]int(nil), s.depths...),
		values: s.values,
	}
	sort.Strings(out.dates)
	sort.Ints(out.depths)
	return out
}

// SelectDates returns a copy holding only the date columns for which keep
// reports true. Depth rows are unchanged.
func (s Series) SelectDates(keep func(date string) bool) Series {
	out := Series{
		depths: append([]int(nil), s.depths...),
		values: make(map[string]map[int]float64, len(s.dates)),
	}
	for _, d := range s.dates {
		if keep(d) {
			out.dates = append(out.dates, d)
			out.values[d] = s.values[d]
		}
	}
	return out
}

// SeriesBuilder accumulates cells in insertion order. It is not safe for
// concurrent use.
type SeriesBuilder struct {
	dates     []string
	depths    []int
	seenDepth map[int]bool
	values    map[string]map[int]float64
}

// NewSeriesBuilder returns an empty builder.
func NewSeriesBuilder() *SeriesBuilder {
	return &SeriesBuilder{
		seenDepth: make(map[int]bool),
		values:    make(map[string]map[int]float64),
	}
}

// AddDate registers a date column without setting any cell.
func (b *SeriesBuilder) AddDate(date string) *SeriesBuilder {
	if _, ok := b.values[date]; !ok {
		b.dates = append(b.dates, date)
		b.values[date] = make(map[int]float64)
	}
	return b
}

// AddDepth registers a depth row without setting any cell.
func (b *SeriesBuilder) AddDepth(depth int) *SeriesBuilder {
	if !b.seenDepth[depth] {
		b.seenDepth[depth] = true
		b.depths = append(b.depths, depth)
	}
	return b
}

// Set stores v at (date, depth), registering either key on first use.
// A later Set for the same cell overwrites the earlier value.
func (b *SeriesBuilder) Set(date string, depth int, v float64) *SeriesBuilder {
	b.AddDate(date)
	b.AddDepth(depth)
	b.values[date][depth] = v
	return b
}

// Build returns an immutable snapshot. The builder may keep being used.
func (b *SeriesBuilder) Build() Series {
	values := make(map[string]map[int]float64, len(b.values))
	for date, col := range b.values {
		c := make(map[int]float64, len(col))
		for d, v := range col {
			c[d] = v
		}
		values[date] = c
	}
	return Series{
		dates:  append([]string(nil), b.dates...),
		depths: append([]int(nil), b.depths...),
		values: values,
	}
}
