package textfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

const profileTitle = "Soil Water Characteristics by Layer"

// profileColumns are the persisted profile columns, in file order.
var profileColumns = []string{
	"Lr_Strt", "Lr_End", "Lr_Thck",
	"thetaFC", "thetaIN", "thetaWP",
	"FC_mm", "IN_mm", "WP_mm",
}

// FormatProfile renders p with one %-6.3f depth label and nine %9.5f
// columns per layer.
func FormatProfile(p domain.LayerProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n%s\nDepth  ", rule, productLine, profileTitle, rule)
	for _, c := range profileColumns {
		fmt.Fprintf(&b, "%-10s", c)
	}
	for _, l := range p.Layers() {
		fmt.Fprintf(&b, "\n%-6.3f", l.Depth)
		for _, v := range []float64{
			l.Start, l.End, l.Thickness,
			l.ThetaFC, l.ThetaInitial, l.ThetaWP,
			l.FCmm, l.Initialmm, l.WPmm,
		} {
			fmt.Fprintf(&b, " %9.5f", v)
		}
	}
	return b.String()
}

// ParseProfile reads text produced by FormatProfile, or the legacy layout
// with a subtitle line above the header. The persisted thickness and
// millimeter columns are taken as written, not recomputed.
func ParseProfile(path, text string) (domain.LayerProfile, error) {
	lines := splitLines(text)
	hdr, err := checkPreamble(path, lines, true)
	if err != nil {
		return domain.LayerProfile{}, err
	}
	if cols := strings.Fields(lines[hdr])[1:]; strings.Join(cols, " ") != strings.Join(profileColumns, " ") {
		return domain.LayerProfile{}, &domain.ParseError{Path: path, Line: hdr + 1,
			Msg: fmt.Sprintf("want columns %s", strings.Join(profileColumns, " "))}
	}

	var layers []domain.SoilLayer
	for i := hdr + 1; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		lineNo := i + 1
		if len(fields) != len(profileColumns)+1 {
			return domain.LayerProfile{}, &domain.ParseError{Path: path, Line: lineNo,
				Msg: fmt.Sprintf("want depth and %d values, got %d fields", len(profileColumns), len(fields))}
		}
		vals := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				name := "Depth"
				if j > 0 {
					name = profileColumns[j-1]
				}
				return domain.LayerProfile{}, &domain.ParseError{Path: path, Line: lineNo,
					Msg: fmt.Sprintf("%s value %q is not a number", name, f)}
			}
			vals[j] = v
		}
		layers = append(layers, domain.SoilLayer{
			Depth:        vals[0],
			Start:        vals[1],
			End:          vals[2],
			Thickness:    vals[3],
			ThetaFC:      vals[4],
			ThetaInitial: vals[5],
			ThetaWP:      vals[6],
			FCmm:         vals[7],
			Initialmm:    vals[8],
			WPmm:         vals[9],
		})
	}

	p, err := domain.NewLayerProfile(layers)
	if err != nil {
		return domain.LayerProfile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadProfile reads a persisted profile file.
func LoadProfile(path string) (domain.LayerProfile, error) {
	text, err := readFile(path)
	if err != nil {
		return domain.LayerProfile{}, err
	}
	return ParseProfile(path, text)
}

// SaveProfile writes p to path, replacing any existing file.
func SaveProfile(path string, p domain.LayerProfile) error {
	return writeFile(path, FormatProfile(p))
}
