package textfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The header keeps the trailing padding of its last %-10s column.
var profileFixture = strings.Join([]string{
	"************************************************************************",
	"soil-water-etl: Layered Soil Water Accounting",
	"Soil Water Characteristics by Layer",
	"************************************************************************",
	"Depth  Lr_Strt   Lr_End    Lr_Thck   thetaFC   thetaIN   thetaWP   FC_mm     IN_mm     WP_mm     ",
	"0.150    0.00000   0.15000   0.15000   0.30000   0.20000   0.12000  45.00000  30.00000  18.00000",
	"0.300    0.15000   0.45000   0.30000   0.25000   0.18000   0.10000  75.00000  54.00000  30.00000",
}, "\n")

func twoLayerProfile(t *testing.T) domain.LayerProfile {
	t.Helper()
	p, err := domain.BuildProfile(domain.ProfileInput{
		Depths:       []float64{0.15, 0.3},
		Boundaries:   []domain.Boundary{{Start: 0, End: 0.15}, {Start: 0.15, End: 0.45}},
		ThetaFC:      []float64{0.30, 0.25},
		ThetaInitial: []float64{0.20, 0.18},
		ThetaWP:      []float64{0.12, 0.10},
	})
	require.NoError(t, err)
	return p
}

func TestFormatProfile(t *testing.T) {
	assert.Equal(t, profileFixture, FormatProfile(twoLayerProfile(t)))
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("fixture.sh2o", profileFixture)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	l := p.Layer(1)
	assert.Equal(t, 0.3, l.Depth)
	assert.Equal(t, 0.15, l.Start)
	assert.Equal(t, 0.45, l.End)
	assert.Equal(t, 0.3, l.Thickness)
	assert.Equal(t, 0.25, l.ThetaFC)
	assert.Equal(t, 54.0, l.Initialmm)
	assert.Equal(t, map[int]float64{15: 0.30, 45: 0.25}, p.FieldCapacityByDepth())
}

func TestParseProfile_LegacySubtitle(t *testing.T) {
	lines := strings.Split(profileFixture, "\n")
	legacy := append(append(append([]string(nil), lines[:4]...), "Soil Water Characteristics Organized by Layer:"), lines[4:]...)

	p, err := ParseProfile("legacy.sh2o", strings.Join(legacy, "\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, profileFixture, FormatProfile(p))
}

func TestProfile_RoundTrip(t *testing.T) {
	p, err := domain.BuildProfile(domain.ProfileInput{
		Depths: []float64{0.15, 0.3, 0.6, 0.9, 1.2, 1.5, 2.0},
		Boundaries: []domain.Boundary{
			{Start: 0, End: 0.15}, {Start: 0.15, End: 0.45}, {Start: 0.45, End: 0.75},
			{Start: 0.75, End: 1.05}, {Start: 1.05, End: 1.35}, {Start: 1.35, End: 1.65},
			{Start: 1.65, End: 2.15},
		},
		ThetaFC:      []float64{0.29, 0.24, 0.182, 0.158, 0.12, 0.108, 0.144},
		ThetaInitial: []float64{0.083, 0.058, 0.039, 0.033, 0.012, 0.005, 0.014},
		ThetaWP:      []float64{0.145, 0.12, 0.091, 0.079, 0.06, 0.054, 0.072},
	})
	require.NoError(t, err)

	text := FormatProfile(p)
	parsed, err := ParseProfile("", text)
	require.NoError(t, err)
	assert.Equal(t, text, FormatProfile(parsed))
}

func TestProfile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.sh2o")
	require.NoError(t, SaveProfile(path, twoLayerProfile(t)))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.45, p.MaxDepth())
}

func TestLoadProfile_NotFound(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.sh2o"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseProfile_Errors(t *testing.T) {
	lines := strings.Split(profileFixture, "\n")
	with := func(i int, line string) string {
		out := append([]string(nil), lines...)
		out[i] = line
		return strings.Join(out, "\n")
	}

	t.Run("wrong columns", func(t *testing.T) {
		_, err := ParseProfile("p.sh2o", with(4, "Depth  Start End"))
		var pe *domain.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 5, pe.Line)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := ParseProfile("p.sh2o", with(6, "0.300    0.15000   0.45000"))
		var pe *domain.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 7, pe.Line)
		assert.Contains(t, err.Error(), "p.sh2o:7")
	})

	t.Run("non-numeric value", func(t *testing.T) {
		_, err := ParseProfile("p.sh2o", with(5, "0.150    0.00000   0.15000   0.15000   loam      0.20000   0.12000  45.00000  30.00000  18.00000"))
		var pe *domain.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 6, pe.Line)
		assert.Contains(t, err.Error(), "thetaFC")
	})

	t.Run("non-contiguous layers", func(t *testing.T) {
		_, err := ParseProfile("p.sh2o", with(6, "0.300    0.20000   0.45000   0.25000   0.25000   0.18000   0.10000  62.50000  45.00000  25.00000"))
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("no layers", func(t *testing.T) {
		_, err := ParseProfile("p.sh2o", strings.Join(lines[:5], "\n"))
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
