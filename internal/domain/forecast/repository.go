package forecast

import (
	"context"
)

// Repository persists completed forecasts
type Repository interface {
	SaveForecast(ctx context.Context, run Run, points []Point) error
	GetPoints(ctx context.Context, runID string) ([]Point, error)
}

// Publisher announces completed forecasts to downstream consumers
type Publisher interface {
	PublishForecast(ctx context.Context, run Run, points []Point) error
}
