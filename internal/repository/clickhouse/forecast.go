package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
)

// Compile-time check
var _ forecast.Repository = (*ForecastRepository)(nil)

const (
	createForecastRunsTable = `
		CREATE TABLE IF NOT EXISTS forecast_runs (
			run_id          String,
			model_id        LowCardinality(String),
			exchange        LowCardinality(String),
			symbol          LowCardinality(String),
			timeframe       LowCardinality(String),
			window_size     UInt32,
			bars_to_predict UInt32,
			history_length  UInt32,
			trained         Bool,
			created_at      DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (symbol, created_at, run_id)`

	createForecastPointsTable = `
		CREATE TABLE IF NOT EXISTS forecast_points (
			run_id           String,
			step             UInt32,
			open_time        DateTime64(3, 'UTC'),
			predicted_scaled Float64,
			predicted_price  Float64
		) ENGINE = MergeTree()
		ORDER BY (run_id, step)`
)

// ForecastRepository stores forecast runs and their points
type ForecastRepository struct {
	conn driver.Conn
}

func NewForecastRepository(conn driver.Conn) *ForecastRepository {
	return &ForecastRepository{conn: conn}
}

// Migrate creates the forecast tables when they do not exist
func (r *ForecastRepository) Migrate(ctx context.Context) error {
	for _, ddl := range []string{createForecastRunsTable, createForecastPointsTable} {
		if err := r.conn.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "create forecast tables")
		}
	}
	return nil
}

// SaveForecast writes the run header then its points in one batch
func (r *ForecastRepository) SaveForecast(ctx context.Context, run forecast.Run, points []forecast.Point) error {
	err := r.conn.Exec(ctx, `
		INSERT INTO forecast_runs (
			run_id, model_id, exchange, symbol, timeframe,
			window_size, bars_to_predict, history_length, trained, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.RunID, run.ModelID, run.Exchange, run.Symbol, run.Timeframe,
		run.WindowSize, run.BarsToPredict, run.HistoryLength, run.Trained, run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert forecast run")
	}

	if len(points) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `INSERT INTO forecast_points`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for i := range points {
		if err := batch.AppendStruct(&points[i]); err != nil {
			return errors.Wrapf(err, "failed to append step %d", points[i].Step)
		}
	}

	return errors.Wrap(batch.Send(), "failed to send batch")
}

// GetPoints returns the points of a run ordered by step
func (r *ForecastRepository) GetPoints(ctx context.Context, runID string) ([]forecast.Point, error) {
	var points []forecast.Point

	err := r.conn.Select(ctx, &points, `
		SELECT run_id, step, open_time, predicted_scaled, predicted_price
		FROM forecast_points
		WHERE run_id = $1
		ORDER BY step`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "select forecast points")
	}
	if len(points) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "forecast run %s", runID)
	}
	return points, nil
}
