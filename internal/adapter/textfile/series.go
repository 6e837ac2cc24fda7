package textfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

// SeriesKind selects the dataset line written for a layered series.
type SeriesKind int

const (
	Content SeriesKind = iota
	Deficit
)

func (k SeriesKind) title() string {
	if k == Deficit {
		return "Fractional Soil Water Deficit Data by Layer"
	}
	return "Fractional Soil Water Content Data by Layer"
}

// FormatSeries renders s in the layered series layout: a %9s header column
// per date and rows of a %5d depth followed by %8.3f values.
func FormatSeries(s domain.Series, kind SeriesKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n%s\nDepth", rule, productLine, kind.title(), rule)
	dates := s.Dates()
	for _, d := range dates {
		fmt.Fprintf(&b, "%9s", d)
	}
	for _, depth := range s.Depths() {
		fmt.Fprintf(&b, "\n%5d", depth)
		for _, d := range dates {
			v, _ := s.Value(d, depth)
			fmt.Fprintf(&b, " %8.3f", v)
		}
	}
	return b.String()
}

// ParseSeries reads text produced by FormatSeries. path only labels errors.
func ParseSeries(path, text string) (domain.Series, error) {
	lines := splitLines(text)
	hdr, err := checkPreamble(path, lines, false)
	if err != nil {
		return domain.Series{}, err
	}

	dates := strings.Fields(lines[hdr])[1:]
	b := domain.NewSeriesBuilder()
	seenDate := make(map[string]bool, len(dates))
	for _, d := range dates {
		if _, err := domain.ParseDateKey(d); err != nil {
			return domain.Series{}, &domain.ParseError{Path: path, Line: hdr + 1, Msg: err.Error()}
		}
		if seenDate[d] {
			return domain.Series{}, &domain.ParseError{Path: path, Line: hdr + 1, Msg: fmt.Sprintf("duplicate date column %s", d)}
		}
		seenDate[d] = true
		b.AddDate(d)
	}

	seen := make(map[int]bool)
	for i := hdr + 1; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		lineNo := i + 1
		if len(fields) != len(dates)+1 {
			return domain.Series{}, &domain.ParseError{Path: path, Line: lineNo,
				Msg: fmt.Sprintf("want depth and %d values, got %d fields", len(dates), len(fields))}
		}
		depth, err := strconv.Atoi(fields[0])
		if err != nil {
			return domain.Series{}, &domain.ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("depth %q is not an integer", fields[0])}
		}
		if seen[depth] {
			return domain.Series{}, &domain.ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("duplicate depth %d", depth)}
		}
		seen[depth] = true
		b.AddDepth(depth)
		for j, d := range dates {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return domain.Series{}, &domain.ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("value %q for %s is not a number", fields[j+1], d)}
			}
			b.Set(d, depth, v)
		}
	}
	return b.Build(), nil
}

// LoadSeries reads a layered series file.
func LoadSeries(path string) (domain.Series, error) {
	text, err := readFile(path)
	if err != nil {
		return domain.Series{}, err
	}
	return ParseSeries(path, text)
}

// SaveSeries writes s to path, replacing any existing file.
func SaveSeries(path string, s domain.Series, kind SeriesKind) error {
	return writeFile(path, FormatSeries(s, kind))
}
