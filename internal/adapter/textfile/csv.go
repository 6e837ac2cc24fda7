package textfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

// simulation CSV column aliases, matched case-insensitively.
var (
	dateColumns = []string{"year-doy", "date"}
	requiredSim = []string{"zr", "taw", "raw"}
	optionalSim = []string{"dr", "drmax", "ks"}
)

// ReadSimulation parses a CSV export of the water-balance simulation. The
// header must name a date column ("Year-DOY" or "date") and Zr, TAW and RAW;
// Dr, Drmax and Ks are read when present. Other columns are ignored.
func ReadSimulation(r io.Reader) ([]domain.SimulationDay, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ParseError{Line: 1, Msg: "empty simulation file"}
		}
		return nil, fmt.Errorf("read simulation header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol := -1
	for _, name := range dateColumns {
		if i, ok := idx[name]; ok {
			dateCol = i
			break
		}
	}
	if dateCol < 0 {
		return nil, &domain.ParseError{Line: 1, Msg: "simulation header has no Year-DOY or date column"}
	}
	for _, name := range requiredSim {
		if _, ok := idx[name]; !ok {
			return nil, &domain.ParseError{Line: 1, Msg: fmt.Sprintf("simulation header has no %s column", name)}
		}
	}

	var days []domain.SimulationDay
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{Line: line, Msg: err.Error()}
		}
		if len(rec) != len(header) {
			return nil, &domain.ParseError{Line: line, Msg: fmt.Sprintf("want %d fields, got %d", len(header), len(rec))}
		}

		day := domain.SimulationDay{Date: strings.TrimSpace(rec[dateCol])}
		if _, err := domain.ParseDateKey(day.Date); err != nil {
			return nil, &domain.ParseError{Line: line, Msg: err.Error()}
		}
		targets := map[string]*float64{
			"zr": &day.RootDepth, "taw": &day.TAW, "raw": &day.RAW,
			"dr": &day.Dr, "drmax": &day.Drmax, "ks": &day.Ks,
		}
		for _, name := range append(append([]string(nil), requiredSim...), optionalSim...) {
			i, ok := idx[name]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, &domain.ParseError{Line: line, Msg: fmt.Sprintf("%s value %q is not a number", header[i], rec[i])}
			}
			*targets[name] = v
		}
		days = append(days, day)
	}
	return days, nil
}

// LoadSimulation reads a simulation CSV file.
func LoadSimulation(path string) ([]domain.SimulationDay, error) {
	f, err := os.Open(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	days, err := ReadSimulation(f)
	if err != nil {
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return days, nil
}

// WriteRootZoneCSV writes one row per record.
func WriteRootZoneCSV(w io.Writer, records []domain.RootZoneRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Year-DOY", "Year", "DOY", "Zr", "SWDr", "SWDrmax", "ObsKs"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.DOY),
			formatFloat(r.RootDepth),
			formatFloat(r.Dr),
			formatFloat(r.Drmax),
			formatFloat(r.ObsKs),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvaluationCSV writes merged simulated and observed values. Cells of
// an absent side are left empty.
func WriteEvaluationCSV(w io.Writer, rows []domain.EvaluationRow) error {
	cw := csv.NewWriter(w)
	header := []string{"Year-DOY", "Year", "DOY", "Zr", "TAW", "RAW", "Dr", "Drmax", "Ks", "SWDr", "SWDrmax", "ObsKs"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := make([]string, 0, len(header))
		row = append(row, r.Date, strconv.Itoa(r.Year), strconv.Itoa(r.DOY))
		if s := r.Simulated; s != nil {
			row = append(row, formatFloat(s.RootDepth), formatFloat(s.TAW), formatFloat(s.RAW),
				formatFloat(s.Dr), formatFloat(s.Drmax), formatFloat(s.Ks))
		} else {
			row = append(row, "", "", "", "", "", "")
		}
		if o := r.Observed; o != nil {
			row = append(row, formatFloat(o.Dr), formatFloat(o.Drmax), formatFloat(o.ObsKs))
		} else {
			row = append(row, "", "", "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
