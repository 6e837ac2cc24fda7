package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/soil-water-etl/internal/adapter/textfile"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

const testSite = `
site "ames" {
  max_root_depth = 0.45

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

const testSimulation = `Year-DOY,Zr,TAW,RAW,Dr,Ks
2022-149,0.19,58,19,25,1
2022-150,0.20,60,20,30,1
`

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.hcl"), []byte(testSite), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sim.csv"), []byte(testSimulation), 0o600))

	content := domain.NewSeriesBuilder().
		Set("2022-150", 15, 0.10).
		Set("2022-150", 45, 0.15).
		Build()
	require.NoError(t, textfile.SaveSeries(filepath.Join(dir, "obs.smc"), content, textfile.Content))
	return dir
}

func TestRun(t *testing.T) {
	dir := writeInputs(t)
	in := func(name string) string { return filepath.Join(dir, name) }

	var stderr bytes.Buffer
	err := run(t.Context(), []string{
		"-site", in("site.hcl"),
		"-content", in("obs.smc"),
		"-simulation", in("sim.csv"),
		"-deficit-out", in("obs.swd"),
		"-rootzone-out", in("rootzone.csv"),
		"-evaluation-out", in("evaluation.csv"),
		"-profile-out", in("site.sh2o"),
	}, &stderr)
	require.NoError(t, err, stderr.String())

	deficit, err := textfile.LoadSeries(in("obs.swd"))
	require.NoError(t, err)
	v, ok := deficit.Value("2022-150", 45)
	require.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-9)

	rootZone, err := os.ReadFile(in("rootzone.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(rootZone), "2022-150,2022,150,0.2000,35.0000,60.0000,0.6250")

	evaluation, err := os.ReadFile(in("evaluation.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(evaluation)), "\n"), 3)

	profile, err := textfile.LoadProfile(in("site.sh2o"))
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Len())

	assert.Contains(t, stderr.String(), "root-zone deficit computed")
}

func TestRun_FromPersistedProfile(t *testing.T) {
	dir := writeInputs(t)
	in := func(name string) string { return filepath.Join(dir, name) }

	profile, err := domain.BuildProfile(domain.ProfileInput{
		Depths:       []float64{0.15, 0.3},
		Boundaries:   []domain.Boundary{{Start: 0, End: 0.15}, {Start: 0.15, End: 0.45}},
		ThetaFC:      []float64{0.30, 0.25},
		ThetaInitial: []float64{0.20, 0.18},
		ThetaWP:      []float64{0.12, 0.10},
	})
	require.NoError(t, err)
	require.NoError(t, textfile.SaveProfile(in("site.sh2o"), profile))

	err = run(t.Context(), []string{
		"-profile", in("site.sh2o"),
		"-content", in("obs.smc"),
		"-simulation", in("sim.csv"),
		"-deficit-out", in("obs.swd"),
		"-rootzone-out", in("rootzone.csv"),
	}, &bytes.Buffer{})
	require.NoError(t, err)

	rootZone, err := os.ReadFile(in("rootzone.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(rootZone), ",35.0000,60.0000,")
}

func TestRun_Errors(t *testing.T) {
	dir := writeInputs(t)
	in := func(name string) string { return filepath.Join(dir, name) }
	base := []string{
		"-content", in("obs.smc"),
		"-simulation", in("sim.csv"),
		"-deficit-out", in("obs.swd"),
		"-rootzone-out", in("rootzone.csv"),
	}

	t.Run("no profile source", func(t *testing.T) {
		err := run(t.Context(), base, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "-site")
	})

	t.Run("missing content file", func(t *testing.T) {
		args := append([]string{"-site", in("site.hcl")}, base...)
		args[3] = in("missing.smc")
		err := run(t.Context(), args, &bytes.Buffer{})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("root depth beyond profile", func(t *testing.T) {
		args := append([]string{"-site", in("site.hcl"), "-max-root-depth", "0.6"}, base...)
		err := run(t.Context(), args, &bytes.Buffer{})
		require.ErrorIs(t, err, domain.ErrDepthRange)
	})
}
