// Command genmock generates deterministic mock fixtures for one site: the
// layer profile, a simulation CSV, probe water content on a fixed
// observation cadence, and the root-zone evaluation the pipeline produces
// from them. It uses the domain package for every derived file so the
// fixtures match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -site data/mock/ames.hcl \
//	  -start 2022-129 -days 120 -every 7 \
//	  -out-dir data/mock
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/soil-water-etl/internal/adapter/textfile"
	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Crop and weather constants for the synthetic water balance.
const (
	initialRootDepth = 0.10 // m
	depletionFrac    = 0.5  // RAW / TAW
	etcMax           = 5.5  // mm/day under no stress
	rainEvery        = 11   // days
	rainDepth        = 28.0 // mm
	sensorNoise      = 0.004
	seed             = 20220509
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	sitePath := flag.String("site", "", "HCL site file describing the soil layers")
	start := flag.String("start", "2022-129", "first simulated day (Year-DOY)")
	days := flag.Int("days", 120, "number of simulated days")
	every := flag.Int("every", 7, "days between probe observations")
	outDir := flag.String("out-dir", "", "directory to write fixtures into")
	flag.Parse()

	if *sitePath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -site, -out-dir")
	}
	if *days < 1 || *every < 1 {
		return fmt.Errorf("-days and -every must be positive")
	}
	first, err := domain.ParseDateKey(*start)
	if err != nil {
		return fmt.Errorf("-start: %w", err)
	}

	site, err := config.LoadSite(*sitePath)
	if err != nil {
		return err
	}
	profile, err := site.BuildProfile()
	if err != nil {
		return err
	}

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		first.Time().AddDate(0, 0, *days).Add(6 * time.Hour),
	))
	defer domain.SetClock(nil)

	sim := simulate(profile, site.MaxRootDepth, first, *days)
	content := observe(profile, sim, *every)
	log.Printf("%s: %d simulated days, %d observation dates, %d depth rows",
		site.Name, len(sim), content.Len(), len(content.Depths()))

	out := func(suffix string) string { return filepath.Join(*outDir, site.Name+suffix) }
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	if err := textfile.SaveProfile(out(".sh2o"), profile); err != nil {
		return fmt.Errorf("writing profile fixture: %w", err)
	}
	log.Printf("wrote profile fixture: %s", out(".sh2o"))

	if err := textfile.SaveSeries(out(".smc"), content, textfile.Content); err != nil {
		return fmt.Errorf("writing content fixture: %w", err)
	}
	log.Printf("wrote content fixture: %s", out(".smc"))

	if err := writeSimulationCSV(out("_sim.csv"), sim); err != nil {
		return fmt.Errorf("writing simulation fixture: %w", err)
	}
	log.Printf("wrote simulation fixture: %s", out("_sim.csv"))

	// Run the actual conversion and integration.
	deficit, err := domain.ToDeficit(content, profile.FieldCapacityByDepth())
	if err != nil {
		return fmt.Errorf("convert content: %w", err)
	}
	if err := textfile.SaveSeries(out(".swd"), deficit, textfile.Deficit); err != nil {
		return fmt.Errorf("writing deficit fixture: %w", err)
	}
	log.Printf("wrote deficit fixture: %s", out(".swd"))

	rootDepth, bounds := domain.SimulationInputs(sim)
	records, err := domain.Integrate(deficit, rootDepth, bounds, site.MaxRootDepth)
	if err != nil {
		return fmt.Errorf("integrate: %w", err)
	}
	if err := writeJSON(out("_evaluation.json"), domain.NewEvaluation(site.Name, records)); err != nil {
		return fmt.Errorf("writing evaluation fixture: %w", err)
	}
	log.Printf("wrote evaluation fixture: %s", out("_evaluation.json"))

	printStats(sim, records)
	return nil
}

// simulate runs a single-bucket water balance with linear root growth from
// initialRootDepth to maxRootDepth over the season.
func simulate(profile domain.LayerProfile, maxRootDepth float64, first domain.DateKey, days int) []domain.SimulationDay {
	tawMax := availableWater(profile, maxRootDepth)
	var dr, drmax float64

	sim := make([]domain.SimulationDay, 0, days)
	for i := range days {
		date := domain.DateKeyFromTime(first.Time().AddDate(0, 0, i))
		zr := initialRootDepth + (maxRootDepth-initialRootDepth)*float64(i)/float64(max(days-1, 1))
		taw := availableWater(profile, zr)
		raw := depletionFrac * taw

		ks := stress(taw, raw, dr)
		et := etcMax * ks
		var rain float64
		if i > 0 && i%rainEvery == 0 {
			rain = rainDepth
		}
		dr = math.Min(math.Max(dr+et-rain, 0), taw)
		drmax = math.Min(math.Max(drmax+et-rain, 0), tawMax)

		sim = append(sim, domain.SimulationDay{
			Date:      date.String(),
			RootDepth: round(zr, 3),
			TAW:       round(taw, 3),
			RAW:       round(raw, 3),
			Dr:        round(dr, 3),
			Drmax:     round(drmax, 3),
			Ks:        round(stress(taw, raw, dr), 3),
		})
	}
	return sim
}

// observe samples probe water content every n days. Layers inside the root
// zone dry in proportion to the simulated depletion; deeper layers hold
// near field capacity.
func observe(profile domain.LayerProfile, sim []domain.SimulationDay, n int) domain.Series {
	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // fixture noise, not security
	b := domain.NewSeriesBuilder()
	for i := 0; i < len(sim); i += n {
		day := sim[i]
		frac := 0.0
		if day.TAW > 0 {
			frac = day.Dr / day.TAW
		}
		for _, l := range profile.Layers() {
			theta := l.ThetaFC - 0.1*(l.ThetaFC-l.ThetaWP)
			if l.Start < day.RootDepth {
				theta = l.ThetaFC - frac*(l.ThetaFC-l.ThetaWP)
			}
			theta += (rng.Float64()*2 - 1) * sensorNoise
			b.Set(day.Date, l.BottomCM(), round(math.Min(math.Max(theta, 0), 1), 3))
		}
	}
	return b.Build()
}

// availableWater is total available water (mm) between field capacity and
// wilting point from the surface down to depth m.
func availableWater(profile domain.LayerProfile, depth float64) float64 {
	var taw float64
	for _, l := range profile.Layers() {
		if l.Start >= depth {
			break
		}
		taw += 1000 * (l.ThetaFC - l.ThetaWP) * (math.Min(l.End, depth) - l.Start)
	}
	return taw
}

func stress(taw, raw, dr float64) float64 {
	if taw <= raw {
		return 1
	}
	return math.Min(math.Max((taw-dr)/(taw-raw), 0), 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeSimulationCSV(path string, sim []domain.SimulationDay) error {
	f, err := os.Create(path) //nolint:gosec // path built from flags
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Year-DOY", "Year", "DOY", "Zr", "TAW", "RAW", "Dr", "Drmax", "Ks"}); err != nil {
		return err
	}
	for _, d := range sim {
		key, err := domain.ParseDateKey(d.Date)
		if err != nil {
			return err
		}
		row := []string{
			d.Date, strconv.Itoa(key.Year), strconv.Itoa(key.DOY),
			fmtFloat(d.RootDepth), fmtFloat(d.TAW), fmtFloat(d.RAW),
			fmtFloat(d.Dr), fmtFloat(d.Drmax), fmtFloat(d.Ks),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// printStats reports values worth pinning in test assertions.
func printStats(sim []domain.SimulationDay, records []domain.RootZoneRecord) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Simulated days: %d (%s .. %s)\n", len(sim), sim[0].Date, sim[len(sim)-1].Date)
	fmt.Printf("Observed dates: %d\n", len(records))
	if len(records) == 0 {
		return
	}

	maxDr, minKs := records[0], records[0]
	var stressed int
	for _, r := range records {
		if r.Dr > maxDr.Dr {
			maxDr = r
		}
		if r.ObsKs < minKs.ObsKs {
			minKs = r
		}
		if r.ObsKs < 1 {
			stressed++
		}
	}
	fmt.Printf("Max observed Dr: %.4f mm on %s (Zr=%.3f m)\n", maxDr.Dr, maxDr.Date, maxDr.RootDepth)
	fmt.Printf("Min observed Ks: %.4f on %s\n", minKs.ObsKs, minKs.Date)
	fmt.Printf("Dates under stress (Ks < 1): %d\n", stressed)

	first := records[0]
	fmt.Printf("\nFirst record:\n")
	fmt.Printf("  Date: %s (year=%d, doy=%d)\n", first.Date, first.Year, first.DOY)
	fmt.Printf("  Zr: %g m\n", first.RootDepth)
	fmt.Printf("  Dr: %.4f mm, Drmax: %.4f mm, ObsKs: %.4f\n", first.Dr, first.Drmax, first.ObsKs)
}
