package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testContentFile = "obs/ames.smc"
	testSimFile     = "sim/ames.csv"
)

// setRequired sets the variables Load refuses to default.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONTENT_FILE", testContentFile)
	t.Setenv("SIMULATION_FILE", testSimFile)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "site.hcl", cfg.SiteConfig)
	assert.Equal(t, ContentFromFile, cfg.ContentSource)
	assert.Equal(t, testContentFile, cfg.ContentFile)
	assert.Equal(t, testSimFile, cfg.SimulationFile)
	assert.Equal(t, time.Hour, cfg.EvaluationInterval)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "soil-water-rootzone", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.False(t, cfg.InfluxEnabled())
	assert.Equal(t, "soil-water", cfg.InfluxOrg)
	assert.Equal(t, "rootzone", cfg.InfluxBucket)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, uint32(5), cfg.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SITE_CONFIG", "/etc/swd/ames.hcl")
	t.Setenv("CONTENT_SOURCE", "mqtt")
	t.Setenv("SIMULATION_FILE", testSimFile)
	t.Setenv("EVALUATION_INTERVAL", "15m")
	t.Setenv("WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("INFLUX_URL", "http://influx:8086")
	t.Setenv("INFLUX_TOKEN", "secret")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("MQTT_TOPIC", "probes/#")
	t.Setenv("BREAKER_FAILURES", "3")
	t.Setenv("BREAKER_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/swd/ames.hcl", cfg.SiteConfig)
	assert.Equal(t, ContentFromMQTT, cfg.ContentSource)
	assert.Empty(t, cfg.ContentFile)
	assert.Equal(t, 15*time.Minute, cfg.EvaluationInterval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.True(t, cfg.InfluxEnabled())
	assert.Equal(t, "secret", cfg.InfluxToken)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTTBroker)
	assert.Equal(t, "probes/#", cfg.MQTTTopic)
	assert.Equal(t, uint32(3), cfg.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
}

func TestLoad_KafkaDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"invalid batch size", map[string]string{"BATCH_SIZE": "0"}, "BATCH_SIZE"},
		{"batch size too large", map[string]string{"BATCH_SIZE": "9999"}, "BATCH_SIZE"},
		{"invalid flush interval", map[string]string{"BATCH_FLUSH_INTERVAL": "not-a-duration"}, "BATCH_FLUSH_INTERVAL"},
		{"invalid evaluation interval", map[string]string{"EVALUATION_INTERVAL": "0s"}, "EVALUATION_INTERVAL"},
		{"invalid workers", map[string]string{"WORKERS": "-2"}, "WORKERS"},
		{"invalid breaker failures", map[string]string{"BREAKER_FAILURES": "many"}, "BREAKER_FAILURES"},
		{"invalid breaker timeout", map[string]string{"BREAKER_TIMEOUT": "soon"}, "BREAKER_TIMEOUT"},
		{"unknown content source", map[string]string{"CONTENT_SOURCE": "ftp"}, "CONTENT_SOURCE"},
		{"missing content file", map[string]string{"CONTENT_FILE": ""}, "CONTENT_FILE"},
		{"missing simulation file", map[string]string{"SIMULATION_FILE": ""}, "SIMULATION_FILE"},
		{"influx without token", map[string]string{"INFLUX_URL": "http://influx:8086"}, "INFLUX_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
