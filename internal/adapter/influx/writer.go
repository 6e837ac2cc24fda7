// Package influx writes root-zone records to InfluxDB as time series points.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

const measurement = "rootzone"

// PointWriter is the blocking write API subset used by Writer.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Writer stores one point per root-zone record, timestamped at UTC midnight
// of the record's date. It implements pipeline.RecordLoader.
type Writer struct {
	api        PointWriter
	client     influxdb2.Client
	logger     *slog.Logger
	maxElapsed time.Duration
}

// NewWriter connects a blocking write API to the configured bucket.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	w := NewWriterWithAPI(client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket), logger)
	w.client = client
	return w
}

// NewWriterWithAPI wraps an existing write API.
func NewWriterWithAPI(api PointWriter, logger *slog.Logger) *Writer {
	return &Writer{api: api, logger: logger, maxElapsed: 10 * time.Second}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "influx" }

// LoadBatch writes all records of the evaluation, retrying transient write
// failures with exponential backoff until the context ends.
func (w *Writer) LoadBatch(ctx context.Context, eval domain.Evaluation) error {
	if len(eval.Records) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(eval.Records))
	for _, rec := range eval.Records {
		p, err := RecordPoint(eval.Site, rec)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = w.maxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := w.api.WritePoint(ctx, points...)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if err != nil {
			w.logger.Warn("influx write failed, retrying", "error", err, "attempt", attempt)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("write %d root-zone points: %w", len(points), err)
	}
	return nil
}

// Close flushes and releases the client, if this writer owns one.
func (w *Writer) Close() error {
	if w.client != nil {
		w.client.Close()
	}
	return nil
}

// RecordPoint converts a record into a point tagged with its site.
func RecordPoint(site string, rec domain.RootZoneRecord) (*write.Point, error) {
	key, err := domain.ParseDateKey(rec.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: root-zone record: %w", domain.ErrParse, err)
	}
	return influxdb2.NewPoint(measurement,
		map[string]string{"site": site},
		map[string]any{
			"root_depth_m": rec.RootDepth,
			"dr_mm":        rec.Dr,
			"drmax_mm":     rec.Drmax,
			"obs_ks":       rec.ObsKs,
		},
		key.Time(),
	), nil
}
