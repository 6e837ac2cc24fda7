package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/couchcryptid/soil-water-etl/internal/observability"
)

// ErrNoObservations is returned by Evaluate while the content source has no cells.
var ErrNoObservations = errors.New("no soil water observations")

// ContentSource supplies observed fractional water content by date and depth.
type ContentSource interface {
	ContentSeries(ctx context.Context) (domain.Series, error)
}

// SimulationSource supplies the simulated root depth and TAW/RAW bounds.
type SimulationSource interface {
	SimulationDays(ctx context.Context) ([]domain.SimulationDay, error)
}

// RecordLoader publishes an evaluation to a destination.
type RecordLoader interface {
	Name() string
	LoadBatch(ctx context.Context, eval domain.Evaluation) error
}

// Options fixes the site being evaluated.
type Options struct {
	Site         string
	Profile      domain.LayerProfile
	MaxRootDepth float64
	Workers      int
	Clock        clockwork.Clock
}

// Result is the outcome of one evaluation.
type Result struct {
	Evaluation domain.Evaluation
	Deficit    domain.Series
	Rows       []domain.EvaluationRow
	// Uncovered lists observation dates the simulation has no values for.
	Uncovered []string
	// Incomplete lists dates whose records contain NaN and were not published.
	Incomplete []string
}

// Pipeline orchestrates the load-convert-integrate-publish cycle.
type Pipeline struct {
	content    ContentSource
	simulation SimulationSource
	loaders    []RecordLoader
	opts       Options
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	latest     atomic.Pointer[Result]
}

// New creates a Pipeline with the given sources, sinks, and observability.
func New(c ContentSource, s SimulationSource, loaders []RecordLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		content:    c,
		simulation: s,
		loaders:    loaders,
		opts:       opts,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once an evaluation has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed an evaluation yet")
	}
	return nil
}

// Latest returns the most recent successful evaluation.
func (p *Pipeline) Latest() (*Result, bool) {
	r := p.latest.Load()
	return r, r != nil
}

// LatestEvaluation returns the published evaluation and merged rows of the
// most recent successful cycle.
func (p *Pipeline) LatestEvaluation() (domain.Evaluation, []domain.EvaluationRow, bool) {
	r, ok := p.Latest()
	if !ok {
		return domain.Evaluation{}, nil, false
	}
	return r.Evaluation, r.Rows, true
}

// Run evaluates immediately and then on every tick of interval until the
// context is cancelled. Failed evaluations are logged and retried on the
// next tick.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "site", p.opts.Site, "interval", interval, "workers", p.opts.Workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Evaluate(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, ErrNoObservations) {
				p.logger.Info("waiting for observations", "site", p.opts.Site)
			} else {
				p.logger.Error("evaluation failed", "site", p.opts.Site, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// Evaluate runs one cycle. Observation dates the simulation does not cover
// are left out; records with missing observations are kept in the result but
// not published. A sink failure is returned after the remaining sinks have
// been tried, and the result is still recorded as the latest evaluation.
func (p *Pipeline) Evaluate(ctx context.Context) (*Result, error) {
	start := p.clock.Now()

	content, err := p.content.ContentSeries(ctx)
	if err != nil {
		p.metrics.EvaluationErrors.WithLabelValues("content").Inc()
		return nil, fmt.Errorf("load content: %w", err)
	}
	if content.Empty() {
		return nil, ErrNoObservations
	}

	days, err := p.simulation.SimulationDays(ctx)
	if err != nil {
		p.metrics.EvaluationErrors.WithLabelValues("simulation").Inc()
		return nil, fmt.Errorf("load simulation: %w", err)
	}

	deficit, err := domain.ToDeficit(content, p.opts.Profile.FieldCapacityByDepth())
	if err != nil {
		p.metrics.EvaluationErrors.WithLabelValues("deficit").Inc()
		return nil, fmt.Errorf("convert to deficit: %w", err)
	}

	rootDepth, bounds := domain.SimulationInputs(days)
	res := &Result{Deficit: deficit}
	covered := deficit.SelectDates(func(date string) bool {
		_, okZr := rootDepth[date]
		_, okB := bounds[date]
		if !okZr || !okB {
			res.Uncovered = append(res.Uncovered, date)
			return false
		}
		return true
	})
	if len(res.Uncovered) > 0 {
		p.logger.Warn("observation dates outside the simulation", "site", p.opts.Site, "dates", res.Uncovered)
	}

	records, err := domain.IntegrateConcurrent(ctx, covered, rootDepth, bounds, p.opts.MaxRootDepth, p.opts.Workers)
	if err != nil {
		p.metrics.EvaluationErrors.WithLabelValues("integrate").Inc()
		return nil, fmt.Errorf("integrate root zone: %w", err)
	}

	complete := make([]domain.RootZoneRecord, 0, len(records))
	for _, r := range records {
		if r.Complete() {
			complete = append(complete, r)
		} else {
			res.Incomplete = append(res.Incomplete, r.Date)
		}
	}
	if len(res.Incomplete) > 0 {
		p.logger.Warn("records with missing observations not published", "site", p.opts.Site, "dates", res.Incomplete)
	}

	res.Evaluation = domain.Evaluation{
		Site:        p.opts.Site,
		ProcessedAt: p.clock.Now().UTC(),
		Records:     complete,
	}
	res.Rows, err = domain.MergeEvaluation(days, complete)
	if err != nil {
		p.metrics.EvaluationErrors.WithLabelValues("merge").Inc()
		return nil, err
	}

	loadErr := p.publish(ctx, res.Evaluation)

	p.latest.Store(res)
	p.ready.Store(true)
	p.metrics.EvaluationsTotal.Inc()
	p.metrics.RootZoneDates.Observe(float64(len(records)))
	p.metrics.EvaluationDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("evaluation complete", "site", p.opts.Site, "records", len(complete))

	return res, loadErr
}

// publish hands the evaluation to every loader and joins their failures.
func (p *Pipeline) publish(ctx context.Context, eval domain.Evaluation) error {
	if len(eval.Records) == 0 {
		return nil
	}
	var errs []error
	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, eval); err != nil {
			p.logger.Error("load batch failed", "sink", l.Name(), "error", err, "batch_size", len(eval.Records))
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
			continue
		}
		p.metrics.RecordsProduced.WithLabelValues(l.Name()).Add(float64(len(eval.Records)))
	}
	return errors.Join(errs...)
}
