package domain

import (
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
)

// mmPerCMFraction converts a fractional deficit over 1 cm of soil to mm:
// fraction * 1000 mm/m * 0.01 m.
const mmPerCMFraction = 10

// Bounds are the simulated total and readily available water (mm) for a day.
type Bounds struct {
	TAW float64 `json:"taw"`
	RAW float64 `json:"raw"`
}

// RootZoneRecord is the observed root-zone water deficit for one date.
type RootZoneRecord struct {
	Date      string  `json:"date"`
	Year      int     `json:"year"`
	DOY       int     `json:"doy"`
	RootDepth float64 `json:"root_depth_m"`
	Dr        float64 `json:"dr_mm"`
	Drmax     float64 `json:"drmax_mm"`
	ObsKs     float64 `json:"obs_ks"`
}

// Integrate sums per-layer fractional deficit over the active root zone (Dr)
// and the maximum root zone (Drmax) for each date of deficit, and derives
// the observed stress coefficient from that date's bounds. Records follow
// the date order of deficit.
//
// rootDepthByDate is in meters and must cover every date of deficit, as must
// boundsByDate. maxRootDepth is in meters and must not exceed the deepest
// depth row of deficit.
func Integrate(deficit Series, rootDepthByDate map[string]float64, boundsByDate map[string]Bounds, maxRootDepth float64) ([]RootZoneRecord, error) {
	owners, err := resolveOwners(deficit.depths, maxRootDepth)
	if err != nil {
		return nil, err
	}

	records := make([]RootZoneRecord, 0, len(deficit.dates))
	for _, date := range deficit.dates {
		rec, err := integrateDate(deficit, owners, date, rootDepthByDate, boundsByDate)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// IntegrateConcurrent is Integrate with dates processed by up to workers
// goroutines. Inputs are only read. Records and the returned error match
// Integrate: on failure the error belongs to the earliest failing date.
func IntegrateConcurrent(ctx context.Context, deficit Series, rootDepthByDate map[string]float64, boundsByDate map[string]Bounds, maxRootDepth float64, workers int) ([]RootZoneRecord, error) {
	owners, err := resolveOwners(deficit.depths, maxRootDepth)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	records := make([]RootZoneRecord, len(deficit.dates))
	errs := make([]error, len(deficit.dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, date := range deficit.dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], errs[i] = integrateDate(deficit, owners, date, rootDepthByDate, boundsByDate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// resolveOwners maps each centimeter 1..rmax to the depth key of the layer
// that owns it: the first row, in series order, whose bottom is at or below
// that centimeter. owners[0] is unused.
func resolveOwners(depths []int, maxRootDepth float64) ([]int, error) {
	if maxRootDepth <= 0 || math.IsNaN(maxRootDepth) {
		return nil, fmt.Errorf("%w: maximum root depth %g m must be positive", ErrDepthRange, maxRootDepth)
	}
	rmax := metersToCM(maxRootDepth)
	owners := make([]int, rmax+1)
	for cm := 1; cm <= rmax; cm++ {
		found := false
		for _, d := range depths {
			if cm <= d {
				owners[cm] = d
				found = true
				break
			}
		}
		if !found {
			if len(depths) == 0 {
				return nil, fmt.Errorf("%w: no depth rows to integrate", ErrDepthRange)
			}
			return nil, fmt.Errorf("%w: maximum root depth %d cm extends below the deepest layer bottom (%d cm)",
				ErrDepthRange, rmax, slices.Max(depths))
		}
	}
	return owners, nil
}

func integrateDate(deficit Series, owners []int, date string, rootDepthByDate map[string]float64, boundsByDate map[string]Bounds) (RootZoneRecord, error) {
	key, err := ParseDateKey(date)
	if err != nil {
		return RootZoneRecord{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	rootDepth, ok := rootDepthByDate[date]
	if !ok {
		return RootZoneRecord{}, fmt.Errorf("%w: no root depth for %s", ErrAlignment, date)
	}
	bounds, ok := boundsByDate[date]
	if !ok {
		return RootZoneRecord{}, fmt.Errorf("%w: no TAW/RAW bounds for %s", ErrAlignment, date)
	}
	if bounds.TAW == bounds.RAW {
		return RootZoneRecord{}, fmt.Errorf("%w: TAW equals RAW (%g mm) on %s", ErrDivideByZero, bounds.TAW, date)
	}

	zr := metersToCM(rootDepth)
	col := deficit.values[date]
	var dr, drmax float64
	for cm := 1; cm < len(owners); cm++ {
		v, ok := col[owners[cm]]
		if !ok {
			v = math.NaN()
		}
		mm := v * mmPerCMFraction
		if cm <= zr {
			dr += mm
		}
		drmax += mm
	}

	return RootZoneRecord{
		Date:      date,
		Year:      key.Year,
		DOY:       key.DOY,
		RootDepth: rootDepth,
		Dr:        dr,
		Drmax:     drmax,
		ObsKs:     clamp01((bounds.TAW - dr) / (bounds.TAW - bounds.RAW)),
	}, nil
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// Complete reports whether every derived value is finite. Records built from
// NaN observations are incomplete and cannot be encoded as JSON.
func (r RootZoneRecord) Complete() bool {
	for _, v := range []float64{r.Dr, r.Drmax, r.ObsKs} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
