package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Content source kinds.
const (
	ContentFromFile = "file"
	ContentFromMQTT = "mqtt"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SiteConfig         string
	ContentSource      string
	ContentFile        string
	SimulationFile     string
	EvaluationInterval time.Duration
	Workers            int

	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaSinkTopic  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// InfluxDB sink configuration. The sink is enabled when InfluxURL is set.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// MQTT sensor ingestion, used when ContentSource is "mqtt".
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	// Circuit breaker settings shared by every sink.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	interval, err := parsePositiveDuration("EVALUATION_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	breakerTimeout, err := parsePositiveDuration("BREAKER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	breakerFailures, err := parsePositiveInt("BREAKER_FAILURES", 5)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := true
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		SiteConfig:         sharedcfg.EnvOrDefault("SITE_CONFIG", "site.hcl"),
		ContentSource:      sharedcfg.EnvOrDefault("CONTENT_SOURCE", ContentFromFile),
		ContentFile:        os.Getenv("CONTENT_FILE"),
		SimulationFile:     os.Getenv("SIMULATION_FILE"),
		EvaluationInterval: interval,
		Workers:            workers,

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "soil-water-rootzone"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    sharedcfg.EnvOrDefault("INFLUX_ORG", "soil-water"),
		InfluxBucket: sharedcfg.EnvOrDefault("INFLUX_BUCKET", "rootzone"),

		MQTTBroker:   sharedcfg.EnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopic:    sharedcfg.EnvOrDefault("MQTT_TOPIC", "sensors/+/soil_moisture"),
		MQTTClientID: sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "soil-water-etl"),

		BreakerFailures: uint32(breakerFailures), //nolint:gosec // validated positive
		BreakerTimeout:  breakerTimeout,
	}

	switch cfg.ContentSource {
	case ContentFromFile:
		if cfg.ContentFile == "" {
			return nil, errors.New("CONTENT_FILE is required when CONTENT_SOURCE is file")
		}
	case ContentFromMQTT:
		if cfg.MQTTBroker == "" || cfg.MQTTTopic == "" {
			return nil, errors.New("MQTT_BROKER and MQTT_TOPIC are required when CONTENT_SOURCE is mqtt")
		}
	default:
		return nil, fmt.Errorf("invalid CONTENT_SOURCE %q: want file or mqtt", cfg.ContentSource)
	}
	if cfg.SimulationFile == "" {
		return nil, errors.New("SIMULATION_FILE is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.InfluxURL != "" && cfg.InfluxToken == "" {
		return nil, errors.New("INFLUX_URL is set but INFLUX_TOKEN is not set")
	}

	return cfg, nil
}

// InfluxEnabled reports whether the InfluxDB sink is configured.
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != ""
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
