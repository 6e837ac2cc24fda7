// Command swd computes observed root-zone soil water deficit for one site.
// It converts a layered water content file to deficit using the site's
// field capacities, integrates deficit over the simulated root zone, and
// writes the deficit file and a root-zone CSV.
//
// Usage:
//
//	go run ./cmd/swd \
//	  -site site.hcl \
//	  -content data/ames.smc \
//	  -simulation data/ames_sim.csv \
//	  -deficit-out out/ames.swd \
//	  -rootzone-out out/ames_rootzone.csv \
//	  -evaluation-out out/ames_evaluation.csv
//
// A persisted profile may be given with -profile instead of -site.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/couchcryptid/soil-water-etl/internal/adapter/textfile"
	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

type options struct {
	site          string
	profile       string
	content       string
	simulation    string
	maxRootDepth  float64
	workers       int
	deficitOut    string
	rootZoneOut   string
	evaluationOut string
	profileOut    string
	verbose       bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "swd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("swd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.site, "site", "", "HCL site file describing the soil layers")
	fs.StringVar(&o.profile, "profile", "", "persisted layer profile (.sh2o), instead of -site")
	fs.StringVar(&o.content, "content", "", "layered water content file (.smc)")
	fs.StringVar(&o.simulation, "simulation", "", "simulation CSV with Year-DOY, Zr, TAW and RAW columns")
	fs.Float64Var(&o.maxRootDepth, "max-root-depth", 0, "maximum root depth in meters (default: from site, else deepest layer)")
	fs.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "dates integrated in parallel")
	fs.StringVar(&o.deficitOut, "deficit-out", "", "output path for the layered deficit file (.swd)")
	fs.StringVar(&o.rootZoneOut, "rootzone-out", "", "output path for the root-zone CSV")
	fs.StringVar(&o.evaluationOut, "evaluation-out", "", "optional output path for simulated vs observed CSV")
	fs.StringVar(&o.profileOut, "profile-out", "", "optional output path for the layer profile (.sh2o)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (o.site == "") == (o.profile == "") {
		return errors.New("exactly one of -site and -profile is required")
	}
	if o.content == "" || o.simulation == "" || o.deficitOut == "" || o.rootZoneOut == "" {
		fs.Usage()
		return errors.New("missing required flags: -content, -simulation, -deficit-out, -rootzone-out")
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return evaluate(ctx, o, logger)
}

func evaluate(ctx context.Context, o options, logger *slog.Logger) error {
	name, profile, maxRootDepth, err := loadProfile(o)
	if err != nil {
		return err
	}
	logger.Debug("profile loaded", "site", name, "layers", profile.Len(), "max_root_depth", maxRootDepth)

	content, err := textfile.LoadSeries(o.content)
	if err != nil {
		return err
	}
	days, err := textfile.LoadSimulation(o.simulation)
	if err != nil {
		return err
	}

	deficit, err := domain.ToDeficit(content, profile.FieldCapacityByDepth())
	if err != nil {
		return fmt.Errorf("%s: %w", o.content, err)
	}
	if err := textfile.SaveSeries(o.deficitOut, deficit, textfile.Deficit); err != nil {
		return err
	}

	rootDepth, bounds := domain.SimulationInputs(days)
	records, err := domain.IntegrateConcurrent(ctx, deficit, rootDepth, bounds, maxRootDepth, o.workers)
	if err != nil {
		return err
	}
	if err := writeFile(o.rootZoneOut, func(w io.Writer) error { return textfile.WriteRootZoneCSV(w, records) }); err != nil {
		return err
	}

	if o.evaluationOut != "" {
		rows, err := domain.MergeEvaluation(days, records)
		if err != nil {
			return err
		}
		if err := writeFile(o.evaluationOut, func(w io.Writer) error { return textfile.WriteEvaluationCSV(w, rows) }); err != nil {
			return err
		}
	}
	if o.profileOut != "" {
		if err := textfile.SaveProfile(o.profileOut, profile); err != nil {
			return err
		}
	}

	logger.Info("root-zone deficit computed", "site", name, "dates", len(records),
		"deficit", o.deficitOut, "rootzone", o.rootZoneOut)
	return nil
}

// loadProfile returns the site name, its layer profile, and the maximum root
// depth to integrate to.
func loadProfile(o options) (string, domain.LayerProfile, float64, error) {
	var (
		name    string
		profile domain.LayerProfile
		maxRoot float64
	)
	if o.site != "" {
		site, err := config.LoadSite(o.site)
		if err != nil {
			return "", domain.LayerProfile{}, 0, err
		}
		profile, err = site.BuildProfile()
		if err != nil {
			return "", domain.LayerProfile{}, 0, err
		}
		name, maxRoot = site.Name, site.MaxRootDepth
	} else {
		var err error
		profile, err = textfile.LoadProfile(o.profile)
		if err != nil {
			return "", domain.LayerProfile{}, 0, err
		}
		name, maxRoot = o.profile, profile.MaxDepth()
	}
	if o.maxRootDepth > 0 {
		maxRoot = o.maxRootDepth
	}
	return name, profile, maxRoot, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
