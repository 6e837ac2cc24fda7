package pipeline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/couchcryptid/soil-water-etl/internal/pipeline"
)

func TestBreakerLoader_OpensAfterConsecutiveFailures(t *testing.T) {
	sink := &mockLoader{name: "influx", err: errors.New("timeout")}
	b := pipeline.NewBreakerLoader(sink, 2, time.Minute, discardLogger())
	eval := domain.Evaluation{Site: "ames", Records: []domain.RootZoneRecord{{Date: "2022-150"}}}

	assert.Equal(t, "influx", b.Name())
	require.Error(t, b.LoadBatch(t.Context(), eval))
	require.Error(t, b.LoadBatch(t.Context(), eval))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.LoadBatch(t.Context(), eval)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, sink.count())
}

func TestBreakerLoader_PassesThroughSuccess(t *testing.T) {
	sink := &mockLoader{name: "kafka"}
	b := pipeline.NewBreakerLoader(sink, 1, time.Minute, discardLogger())

	require.NoError(t, b.LoadBatch(t.Context(), domain.Evaluation{Site: "ames"}))
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 1, sink.count())
}
