package domain

import (
	"fmt"
	"math"
)

// boundaryTolerance absorbs float noise when checking that adjacent layers
// share a boundary.
const boundaryTolerance = 1e-9

// Boundary is the [Start, End) extent of a layer in meters below the surface.
type Boundary struct {
	Start float64
	End   float64
}

// ProfileInput carries the parallel, shallow-to-deep sequences a profile is
// built from. All slices must have the same non-zero length.
type ProfileInput struct {
	Depths       []float64 // representative depth of each layer (m)
	Boundaries   []Boundary
	ThetaFC      []float64
	ThetaInitial []float64
	ThetaWP      []float64
}

// SoilLayer is one stratum of a LayerProfile.
type SoilLayer struct {
	Depth        float64 `json:"depth"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Thickness    float64 `json:"thickness"`
	ThetaFC      float64 `json:"theta_fc"`
	ThetaInitial float64 `json:"theta_initial"`
	ThetaWP      float64 `json:"theta_wp"`
	FCmm         float64 `json:"fc_mm"`
	Initialmm    float64 `json:"initial_mm"`
	WPmm         float64 `json:"wp_mm"`
}

// BottomCM returns the layer's bottom boundary in whole centimeters, the key
// used for this layer in observation series.
func (l SoilLayer) BottomCM() int {
	return metersToCM(l.End)
}

// LayerProfile is an immutable, contiguous, shallow-to-deep sequence of
// soil layers. The zero value is an empty profile.
type LayerProfile struct {
	layers []SoilLayer
}

// BuildProfile derives thickness and millimeter water depths for each layer
// and validates the profile's structure.
func BuildProfile(in ProfileInput) (LayerProfile, error) {
	n := len(in.Depths)
	switch {
	case n == 0:
		return LayerProfile{}, fmt.Errorf("%w: depths are required", ErrConfiguration)
	case in.Boundaries == nil:
		return LayerProfile{}, fmt.Errorf("%w: layer boundaries are required", ErrConfiguration)
	case in.ThetaFC == nil:
		return LayerProfile{}, fmt.Errorf("%w: field capacity values are required", ErrConfiguration)
	case in.ThetaInitial == nil:
		return LayerProfile{}, fmt.Errorf("%w: initial water content values are required", ErrConfiguration)
	case in.ThetaWP == nil:
		return LayerProfile{}, fmt.Errorf("%w: wilting point values are required", ErrConfiguration)
	}
	lengths := []struct {
		name string
		n    int
	}{
		{"layer boundaries", len(in.Boundaries)},
		{"thetaFC values", len(in.ThetaFC)},
		{"thetaIN values", len(in.ThetaInitial)},
		{"thetaWP values", len(in.ThetaWP)},
	}
	for _, l := range lengths {
		if l.n != n {
			return LayerProfile{}, fmt.Errorf("%w: %d depths but %d %s", ErrConfiguration, n, l.n, l.name)
		}
	}

	layers := make([]SoilLayer, n)
	for i := range n {
		b := in.Boundaries[i]
		thickness := round3(b.End - b.Start)
		layers[i] = SoilLayer{
			Depth:        in.Depths[i],
			Start:        b.Start,
			End:          b.End,
			Thickness:    thickness,
			ThetaFC:      in.ThetaFC[i],
			ThetaInitial: in.ThetaInitial[i],
			ThetaWP:      in.ThetaWP[i],
			FCmm:         in.ThetaFC[i] * 1000 * thickness,
			Initialmm:    in.ThetaInitial[i] * 1000 * thickness,
			WPmm:         in.ThetaWP[i] * 1000 * thickness,
		}
	}
	return NewLayerProfile(layers)
}

// NewLayerProfile wraps already-derived layers, such as those read back from
// a persisted profile, after checking the same invariants as BuildProfile.
// The slice is copied.
func NewLayerProfile(layers []SoilLayer) (LayerProfile, error) {
	if len(layers) == 0 {
		return LayerProfile{}, fmt.Errorf("%w: profile has no layers", ErrConfiguration)
	}
	if math.Abs(layers[0].Start) > boundaryTolerance {
		return LayerProfile{}, fmt.Errorf("%w: first layer starts at %g m, want 0", ErrConfiguration, layers[0].Start)
	}
	for i, l := range layers {
		if l.End <= l.Start {
			return LayerProfile{}, fmt.Errorf("%w: layer %g: end %g m is not below start %g m",
				ErrConfiguration, l.Depth, l.End, l.Start)
		}
		if i == 0 {
			continue
		}
		prev := layers[i-1]
		if l.Depth <= prev.Depth {
			return LayerProfile{}, fmt.Errorf("%w: depths must be strictly increasing (%g after %g)",
				ErrConfiguration, l.Depth, prev.Depth)
		}
		if math.Abs(l.Start-prev.End) > boundaryTolerance {
			return LayerProfile{}, fmt.Errorf("%w: layer %g starts at %g m but layer %g ends at %g m",
				ErrConfiguration, l.Depth, l.Start, prev.Depth, prev.End)
		}
	}
	return LayerProfile{layers: append([]SoilLayer(nil), layers...)}, nil
}

// Len returns the number of layers.
func (p LayerProfile) Len() int { return len(p.layers) }

// Layer returns the i-th layer, shallowest first.
func (p LayerProfile) Layer(i int) SoilLayer { return p.layers[i] }

// Layers returns a copy of all layers.
func (p LayerProfile) Layers() []SoilLayer {
	return append([]SoilLayer(nil), p.layers...)
}

// MaxDepth returns the bottom of the deepest layer in meters.
func (p LayerProfile) MaxDepth() float64 {
	if len(p.layers) == 0 {
		return 0
	}
	return p.layers[len(p.layers)-1].End
}

// FieldCapacityByDepth maps each layer's bottom depth (cm) to its field
// capacity fraction.
func (p LayerProfile) FieldCapacityByDepth() map[int]float64 {
	out := make(map[int]float64, len(p.layers))
	for _, l := range p.layers {
		out[l.BottomCM()] = l.ThetaFC
	}
	return out
}

func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}

func metersToCM(m float64) int {
	return int(math.RoundToEven(m * 100))
}
