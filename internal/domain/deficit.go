package domain

import (
	"fmt"
	"math"
)

// ToDeficit converts fractional water content to fractional deficit below
// field capacity: max(0, θFC - θ) for every cell. fcByDepth is keyed by
// layer-bottom depth in centimeters, see [LayerProfile.FieldCapacityByDepth].
//
// Content above field capacity counts as zero deficit. Missing (NaN) cells
// stay NaN. The result has the same columns and rows as content.
func ToDeficit(content Series, fcByDepth map[int]float64) (Series, error) {
	for _, depth := range content.depths {
		if _, ok := fcByDepth[depth]; !ok {
			return Series{}, fmt.Errorf("%w: no field capacity for depth %d cm", ErrAlignment, depth)
		}
	}

	b := NewSeriesBuilder()
	for _, depth := range content.depths {
		b.AddDepth(depth)
	}
	for _, date := range content.dates {
		b.AddDate(date)
		for _, cell := range content.Column(date) {
			b.Set(date, cell.Depth, deficitOf(fcByDepth[cell.Depth], cell.Value))
		}
	}
	return b.Build(), nil
}

func deficitOf(fc, theta float64) float64 {
	if math.IsNaN(theta) {
		return theta
	}
	return math.Max(0, fc-theta)
}
