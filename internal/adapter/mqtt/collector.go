// Package mqtt collects soil moisture probe readings published over MQTT
// into a content series the pipeline can evaluate.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/couchcryptid/soil-water-etl/internal/observability"
)

// Reading is one probe measurement. Date takes precedence over Timestamp;
// a reading with neither is stamped with the receive day.
type Reading struct {
	SensorID  string    `json:"sensor_id"`
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	DepthCM   int       `json:"depth_cm"`
	Theta     float64   `json:"theta"`
}

// Collector accumulates readings into a content series keyed by date and
// layer-bottom depth. A later reading for the same cell replaces the earlier.
// Only depths that are layer bottoms of the site profile are accepted, so the
// snapshot always converts against the profile's field capacities.
type Collector struct {
	mu      sync.Mutex
	builder *domain.SeriesBuilder
	depths  map[int]struct{}
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCollector returns an empty collector for the given profile. A nil clock
// uses real time.
func NewCollector(profile domain.LayerProfile, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	depths := make(map[int]struct{}, profile.Len())
	for depth := range profile.FieldCapacityByDepth() {
		depths[depth] = struct{}{}
	}
	return &Collector{
		builder: domain.NewSeriesBuilder(),
		depths:  depths,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Ingest decodes and records one JSON reading.
func (c *Collector) Ingest(payload []byte) error {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		c.metrics.ObservationsRejected.Inc()
		return fmt.Errorf("%w: decode reading: %w", domain.ErrParse, err)
	}

	date, err := c.dateOf(r)
	if err != nil {
		c.metrics.ObservationsRejected.Inc()
		return err
	}
	if r.DepthCM <= 0 {
		c.metrics.ObservationsRejected.Inc()
		return fmt.Errorf("%w: reading from %q has depth %d cm", domain.ErrParse, r.SensorID, r.DepthCM)
	}
	if _, ok := c.depths[r.DepthCM]; !ok {
		c.metrics.ObservationsRejected.Inc()
		return fmt.Errorf("%w: reading from %q at %d cm is not a layer bottom of the site profile",
			domain.ErrAlignment, r.SensorID, r.DepthCM)
	}
	if r.Theta < 0 || r.Theta > 1 {
		c.metrics.ObservationsRejected.Inc()
		return fmt.Errorf("%w: reading from %q has water content %g outside [0, 1]", domain.ErrParse, r.SensorID, r.Theta)
	}

	c.mu.Lock()
	c.builder.Set(date, r.DepthCM, r.Theta)
	c.mu.Unlock()

	c.metrics.ObservationsIngested.Inc()
	return nil
}

func (c *Collector) dateOf(r Reading) (string, error) {
	switch {
	case r.Date != "":
		key, err := domain.ParseDateKey(r.Date)
		if err != nil {
			return "", fmt.Errorf("%w: reading from %q: %w", domain.ErrParse, r.SensorID, err)
		}
		return key.String(), nil
	case !r.Timestamp.IsZero():
		return domain.DateKeyFromTime(r.Timestamp).String(), nil
	default:
		return domain.DateKeyFromTime(c.clock.Now()).String(), nil
	}
}

// ContentSeries returns a snapshot of every reading collected so far, with
// dates in chronological order and depths ascending.
func (c *Collector) ContentSeries(_ context.Context) (domain.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builder.Build().Sorted(), nil
}

// handleMessage is the paho callback. Malformed readings are logged and dropped.
func (c *Collector) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	if err := c.Ingest(msg.Payload()); err != nil {
		c.logger.Warn("dropping sensor reading", "topic", msg.Topic(), "error", err)
	}
}

// Consume subscribes to topic and blocks until the context is cancelled.
func (c *Collector) Consume(ctx context.Context, client pahomqtt.Client, topic string) error {
	token := client.Subscribe(topic, 1, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	c.logger.Info("subscribed to sensor readings", "topic", topic)

	<-ctx.Done()

	client.Unsubscribe(topic).Wait()
	return nil
}

// Connect dials the configured broker, retrying with exponential backoff.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetCleanSession(true).
		SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var client pahomqtt.Client
	err := backoff.Retry(func() error {
		client = pahomqtt.NewClient(opts)
		token := client.Connect()
		if token.Wait() && token.Error() != nil {
			logger.Warn("mqtt connect failed", "broker", cfg.MQTTBroker, "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.MQTTBroker, err)
	}

	logger.Info("connected to mqtt broker", "broker", cfg.MQTTBroker)
	return client, nil
}
