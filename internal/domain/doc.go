// Package domain implements layered soil-water accounting: building a
// stratified soil profile, converting observed water content into deficit,
// and integrating per-layer deficit over the root zone.
//
// # Units and Keys
//
// Profile depths and layer boundaries are meters (float). Observation series
// are keyed by layer-bottom depth in whole centimeters (int), so a layer
// spanning 0.15–0.45 m appears as row 45 in a content or deficit series.
// [LayerProfile.FieldCapacityByDepth] converts between the two.
//
// Date keys are 4-digit year and 3-digit day of year joined by a hyphen:
//
//	"2022-153"  →  year 2022, day 153 (June 2)
//
// Water depths are millimeters. A volumetric fraction θ over a layer of
// thickness t meters holds θ * 1000 * t mm of water.
//
// # Root Zone Integration
//
// The integrator walks the soil column in 1 cm steps down to the maximum
// root depth. Each step belongs to the shallowest layer whose bottom depth
// has not yet been passed, and adds that layer's fractional deficit * 10 mm
// (θ over 0.01 m) to Drmax. Steps at or above the root depth Zr also add to
// Dr. Each layer's deficit is assumed uniform across its thickness.
//
// The observed stress coefficient compares Dr to the simulated water
// bounds for the same day:
//
//	ObsKs = clamp((TAW - Dr) / (TAW - RAW), 0, 1)
//
// # Rounding
//
// Root depths are converted to centimeters with round-half-to-even
// (0.125 m → 12 cm, 0.375 m → 38 cm). The maximum root depth uses the same
// rule so that 0.29 m maps to 29 cm rather than truncating the float error.
//
// # Missing Values
//
// Cells absent from a series are NaN. NaN propagates: a NaN content value
// yields NaN deficit, and a NaN deficit inside the swept column yields NaN
// Dr/Drmax/ObsKs for that date.
package domain
