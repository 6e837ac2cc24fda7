package domain

import (
	"fmt"
	"sort"
	"time"
)

// SimulationDay is one day of output from the upstream water-balance
// simulation. Only Date, RootDepth, TAW and RAW are needed for integration;
// the modeled depletion fields are carried for evaluation against
// observations and may be zero when the simulation does not export them.
type SimulationDay struct {
	Date      string  `json:"date"`
	RootDepth float64 `json:"zr_m"`
	TAW       float64 `json:"taw_mm"`
	RAW       float64 `json:"raw_mm"`
	Dr        float64 `json:"dr_mm"`
	Drmax     float64 `json:"drmax_mm"`
	Ks        float64 `json:"ks"`
}

// SimulationInputs splits simulation days into the root-depth and bounds
// lookups consumed by Integrate. A repeated date keeps its last value.
func SimulationInputs(days []SimulationDay) (rootDepthByDate map[string]float64, boundsByDate map[string]Bounds) {
	rootDepthByDate = make(map[string]float64, len(days))
	boundsByDate = make(map[string]Bounds, len(days))
	for _, d := range days {
		rootDepthByDate[d.Date] = d.RootDepth
		boundsByDate[d.Date] = Bounds{TAW: d.TAW, RAW: d.RAW}
	}
	return rootDepthByDate, boundsByDate
}

// EvaluationRow pairs simulated and observed values for one date. Either
// side may be absent: Simulated is nil on observation-only dates and
// Observed is nil on the (usual) days without measurements.
type EvaluationRow struct {
	Date      string          `json:"date"`
	Year      int             `json:"year"`
	DOY       int             `json:"doy"`
	Simulated *SimulationDay  `json:"simulated,omitempty"`
	Observed  *RootZoneRecord `json:"observed,omitempty"`
}

// Evaluation is a stamped result of one root-zone evaluation run.
type Evaluation struct {
	Site        string           `json:"site"`
	ProcessedAt time.Time        `json:"processed_at"`
	Records     []RootZoneRecord `json:"records"`
}

// NewEvaluation stamps records with the current time.
func NewEvaluation(site string, records []RootZoneRecord) Evaluation {
	return Evaluation{
		Site:        site,
		ProcessedAt: clock.Now().UTC(),
		Records:     records,
	}
}

// MergeEvaluation outer-joins simulated days and observed records on date
// key and returns rows in chronological order.
func MergeEvaluation(days []SimulationDay, records []RootZoneRecord) ([]EvaluationRow, error) {
	rows := make(map[string]*EvaluationRow, len(days))
	keys := make(map[string]DateKey, len(days))

	row := func(date string) (*EvaluationRow, error) {
		if r, ok := rows[date]; ok {
			return r, nil
		}
		k, err := ParseDateKey(date)
		if err != nil {
			return nil, fmt.Errorf("merge evaluation: %w", err)
		}
		r := &EvaluationRow{Date: date, Year: k.Year, DOY: k.DOY}
		rows[date] = r
		keys[date] = k
		return r, nil
	}

	for i := range days {
		r, err := row(days[i].Date)
		if err != nil {
			return nil, err
		}
		d := days[i]
		r.Simulated = &d
	}
	for i := range records {
		r, err := row(records[i].Date)
		if err != nil {
			return nil, err
		}
		rec := records[i]
		r.Observed = &rec
	}

	out := make([]EvaluationRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := keys[out[i].Date], keys[out[j].Date]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.DOY < b.DOY
	})
	return out, nil
}
