package textfile

import (
	"context"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

// ContentFile serves a content series file as a pipeline content source.
// The file is re-read on every call so edits are picked up between runs.
type ContentFile struct {
	Path string
}

func (f ContentFile) ContentSeries(_ context.Context) (domain.Series, error) {
	return LoadSeries(f.Path)
}

// SimulationFile serves a simulation CSV export as a pipeline source.
type SimulationFile struct {
	Path string
}

func (f SimulationFile) SimulationDays(_ context.Context) ([]domain.SimulationDay, error) {
	return LoadSimulation(f.Path)
}
