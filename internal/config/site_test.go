package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteHCL = `
site "ames" {
  max_root_depth = 0.4

  layer {
    depth         = 0.15
    start         = 0
    end           = 0.15
    theta_fc      = 0.30
    theta_initial = 0.20
    theta_wp      = 0.12
  }

  layer {
    depth         = 0.3
    start         = 0.15
    end           = 0.45
    theta_fc      = 0.25
    theta_initial = 0.18
    theta_wp      = 0.10
  }
}
`

func TestParseSite(t *testing.T) {
	site, err := ParseSite("ames.hcl", []byte(siteHCL))
	require.NoError(t, err)

	assert.Equal(t, "ames", site.Name)
	assert.Equal(t, 0.4, site.MaxRootDepth)
	assert.Equal(t, []float64{0.15, 0.3}, site.Profile.Depths)
	assert.Equal(t, []domain.Boundary{{Start: 0, End: 0.15}, {Start: 0.15, End: 0.45}}, site.Profile.Boundaries)
	assert.Equal(t, []float64{0.30, 0.25}, site.Profile.ThetaFC)

	p, err := site.BuildProfile()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, map[int]float64{15: 0.30, 45: 0.25}, p.FieldCapacityByDepth())
}

func TestParseSite_DefaultMaxRootDepth(t *testing.T) {
	src := `
site "plot" {
  layer {
    depth         = 0.1
    start         = 0
    end           = 0.2
    theta_fc      = 0.3
    theta_initial = 0.2
    theta_wp      = 0.1
  }
}
`
	site, err := ParseSite("plot.hcl", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, 0.2, site.MaxRootDepth)
}

func TestParseSite_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"syntax", `site "a" {`, domain.ErrParse},
		{"missing attribute", `site "a" { layer { depth = 0.1 } }`, domain.ErrParse},
		{"unknown attribute", `site "a" { soil = "loam" }`, domain.ErrParse},
		{"no site", ``, domain.ErrConfiguration},
		{"two sites", `site "a" {}
site "b" {}`, domain.ErrConfiguration},
		{"non-positive max root depth", `site "a" { max_root_depth = 0 }`, domain.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSite("bad.hcl", []byte(tt.src))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSite_BuildProfileWithoutLayers(t *testing.T) {
	site, err := ParseSite("empty.hcl", []byte(`site "empty" {}`))
	require.NoError(t, err)

	_, err = site.BuildProfile()
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), `site "empty"`)
}

func TestLoadSite(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "ames.hcl")
		require.NoError(t, os.WriteFile(path, []byte(siteHCL), 0o600))

		site, err := LoadSite(path)
		require.NoError(t, err)
		assert.Equal(t, "ames", site.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := LoadSite(filepath.Join(dir, "missing.hcl"))
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
