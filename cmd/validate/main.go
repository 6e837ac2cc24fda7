// Command validate performs end-to-end integrity checks on a site's fixture
// set as written by genmock: the HCL site, the persisted layer profile, the
// water content and deficit files, the simulation CSV, and the root-zone
// evaluation JSON. It verifies byte-exact round trips, value ranges, and
// that every derived file matches a fresh run of the domain package.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -site data/mock/ames.hcl \
//	  -dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/soil-water-etl/internal/adapter/textfile"
	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
)

// profileTolerance covers the five decimals of the persisted profile layout.
const profileTolerance = 5e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fixtures is everything loaded from disk for one site.
type fixtures struct {
	site        *config.Site
	profile     domain.LayerProfile // built from the HCL site
	persisted   domain.LayerProfile // read back from .sh2o
	content     domain.Series
	deficit     domain.Series
	simulation  []domain.SimulationDay
	evaluation  domain.Evaluation
	rawProfile  string
	rawContent  string
	rawDeficit  string
	profilePath string
}

func main() {
	sitePath := flag.String("site", "", "HCL site file the fixtures were generated from")
	dir := flag.String("dir", "", "directory containing the generated fixtures")
	flag.Parse()

	if *sitePath == "" || *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*sitePath, *dir); code != 0 {
		os.Exit(code)
	}
}

func run(sitePath, dir string) int {
	// ── Load all data sources ──
	fmt.Println("=== Soil Water Fixture Validation ===")
	fmt.Println()

	fx, err := loadFixtures(sitePath, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateProfile(fx),
		validateSeriesFiles(fx),
		validateDeficit(fx),
		validateRootZone(fx),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Site %s: %d layers, %d observation dates, %d simulated days, %d root-zone records\n",
		fx.site.Name, fx.profile.Len(), fx.content.Len(), len(fx.simulation), len(fx.evaluation.Records))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadFixtures(sitePath, dir string) (*fixtures, error) {
	site, err := config.LoadSite(sitePath)
	if err != nil {
		return nil, err
	}
	profile, err := site.BuildProfile()
	if err != nil {
		return nil, err
	}
	path := func(suffix string) string { return filepath.Join(dir, site.Name+suffix) }

	fx := &fixtures{site: site, profile: profile, profilePath: path(".sh2o")}

	if fx.persisted, err = textfile.LoadProfile(path(".sh2o")); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if fx.content, err = textfile.LoadSeries(path(".smc")); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	if fx.deficit, err = textfile.LoadSeries(path(".swd")); err != nil {
		return nil, fmt.Errorf("load deficit: %w", err)
	}
	if fx.simulation, err = textfile.LoadSimulation(path("_sim.csv")); err != nil {
		return nil, fmt.Errorf("load simulation: %w", err)
	}
	if fx.evaluation, err = loadJSON[domain.Evaluation](path("_evaluation.json")); err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}

	for target, suffix := range map[*string]string{
		&fx.rawProfile: ".sh2o",
		&fx.rawContent: ".smc",
		&fx.rawDeficit: ".swd",
	} {
		data, err := os.ReadFile(path(suffix))
		if err != nil {
			return nil, err
		}
		*target = string(data)
	}
	return fx, nil
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ── Phase 1: Profile ──
// Validates the persisted profile against the HCL site it was built from.

func validateProfile(fx *fixtures) *phase {
	p := &phase{name: "Phase 1: Profile (HCL vs .sh2o)"}

	if got := textfile.FormatProfile(fx.persisted); got != fx.rawProfile {
		p.errorf("%s does not round-trip byte for byte", fx.profilePath)
	}

	if fx.persisted.Len() != fx.profile.Len() {
		p.errorf("layer count: site has %d, profile file has %d", fx.profile.Len(), fx.persisted.Len())
		return p
	}

	approx := cmpopts.EquateApprox(0, profileTolerance)
	for i := range fx.profile.Len() {
		if diff := cmp.Diff(fx.profile.Layer(i), fx.persisted.Layer(i), approx); diff != "" {
			p.errorf("layer %d differs (-site +file):\n%s", i+1, diff)
		}
	}

	if d := fx.site.MaxRootDepth; d > fx.profile.MaxDepth()+profileTolerance {
		p.errorf("max_root_depth %g m extends below the deepest layer bottom %g m", d, fx.profile.MaxDepth())
	}
	return p
}

// ── Phase 2: Series Files ──
// Validates layout round trips, value ranges, and depth alignment.

func validateSeriesFiles(fx *fixtures) *phase {
	p := &phase{name: "Phase 2: Series Files (.smc, .swd)"}

	if textfile.FormatSeries(fx.content, textfile.Content) != fx.rawContent {
		p.errorf("content file does not round-trip byte for byte")
	}
	if textfile.FormatSeries(fx.deficit, textfile.Deficit) != fx.rawDeficit {
		p.errorf("deficit file does not round-trip byte for byte")
	}

	fc := fx.profile.FieldCapacityByDepth()
	for _, depth := range fx.content.Depths() {
		if _, ok := fc[depth]; !ok {
			p.errorf("content depth %d cm has no matching layer bottom", depth)
		}
	}
	if !slices.Equal(fx.content.Dates(), fx.deficit.Dates()) {
		p.errorf("content and deficit files have different date columns")
	}

	for _, date := range fx.content.Dates() {
		if _, err := domain.ParseDateKey(date); err != nil {
			p.errorf("content date %q: %v", date, err)
		}
		for _, dv := range fx.content.Column(date) {
			if math.IsNaN(dv.Value) {
				continue
			}
			if dv.Value < 0 || dv.Value > 1 {
				p.errorf("%s depth %d: water content %g outside [0, 1]", date, dv.Depth, dv.Value)
			}
		}
	}
	return p
}

// ── Phase 3: Deficit ──
// Validates the deficit file against a fresh conversion of the content file.

func validateDeficit(fx *fixtures) *phase {
	p := &phase{name: "Phase 3: Deficit (content vs fc)"}

	want, err := domain.ToDeficit(fx.content, fx.profile.FieldCapacityByDepth())
	if err != nil {
		p.errorf("convert content: %v", err)
		return p
	}

	for _, date := range want.Dates() {
		for _, dv := range want.Column(date) {
			got, ok := fx.deficit.Value(date, dv.Depth)
			switch {
			case !ok:
				p.errorf("%s depth %d: missing from deficit file", date, dv.Depth)
			case math.IsNaN(dv.Value) != math.IsNaN(got):
				p.errorf("%s depth %d: expected %g, got %g", date, dv.Depth, dv.Value, got)
			case !math.IsNaN(got) && math.Abs(got-dv.Value) > 5e-4:
				p.errorf("%s depth %d: expected %.3f, got %.3f", date, dv.Depth, dv.Value, got)
			case got < 0:
				p.errorf("%s depth %d: negative deficit %g", date, dv.Depth, got)
			}
		}
	}
	return p
}

// ── Phase 4: Root Zone ──
// Validates the evaluation JSON against a fresh integration.

func validateRootZone(fx *fixtures) *phase {
	p := &phase{name: "Phase 4: Root Zone (evaluation JSON)"}

	deficit, err := domain.ToDeficit(fx.content, fx.profile.FieldCapacityByDepth())
	if err != nil {
		p.errorf("convert content: %v", err)
		return p
	}
	rootDepth, bounds := domain.SimulationInputs(fx.simulation)
	records, err := domain.Integrate(deficit, rootDepth, bounds, fx.site.MaxRootDepth)
	if err != nil {
		p.errorf("integrate: %v", err)
		return p
	}

	// Stamp with the clock genmock froze: 06:00 UTC the day after the season.
	if n := len(fx.simulation); n > 0 {
		last, err := domain.ParseDateKey(fx.simulation[n-1].Date)
		if err != nil {
			p.errorf("simulation date: %v", err)
			return p
		}
		domain.SetClock(clockwork.NewFakeClockAt(last.Time().AddDate(0, 0, 1).Add(6 * time.Hour)))
		defer domain.SetClock(nil)
	}
	want := domain.NewEvaluation(fx.site.Name, records)

	if diff := cmp.Diff(want, fx.evaluation, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		p.errorf("evaluation differs from a fresh run (-want +got):\n%s", diff)
	}

	for _, r := range fx.evaluation.Records {
		if r.ObsKs < 0 || r.ObsKs > 1 {
			p.errorf("%s: ObsKs %g outside [0, 1]", r.Date, r.ObsKs)
		}
		if r.Dr > r.Drmax+1e-9 {
			p.errorf("%s: Dr %g exceeds Drmax %g", r.Date, r.Dr, r.Drmax)
		}
		if _, ok := rootDepth[r.Date]; !ok {
			p.errorf("%s: record has no simulated day", r.Date)
		}
	}
	return p
}
