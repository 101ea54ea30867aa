package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/testsupport"
	"candlecast/pkg/errors"
)

func TestForecastRepository_SaveAndGetPoints(t *testing.T) {
	cfg := testsupport.ClickHouseConfigFromEnv(t)
	helper := testsupport.NewClickHouseTestHelper(t, cfg)
	ctx := context.Background()

	repo := NewForecastRepository(helper.Client().Conn())
	require.NoError(t, repo.Migrate(ctx))

	runID := uuid.NewString()
	helper.RegisterTableCleanup(t, "forecast_runs", "run_id = '"+runID+"'")
	helper.RegisterTableCleanup(t, "forecast_points", "run_id = '"+runID+"'")

	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	run := forecast.Run{
		RunID: runID, ModelID: "model3", Exchange: "test_exchange", Symbol: "TESTUSDT", Timeframe: "1h",
		WindowSize: 4, BarsToPredict: 2, HistoryLength: 20, CreatedAt: open,
	}
	points := []forecast.Point{
		{RunID: runID, Step: 2, OpenTime: open.Add(2 * time.Hour), PredictedScaled: 0.6, PredictedPrice: 106},
		{RunID: runID, Step: 1, OpenTime: open.Add(time.Hour), PredictedScaled: 0.5, PredictedPrice: 105},
	}

	require.NoError(t, repo.SaveForecast(ctx, run, points))

	got, err := repo.GetPoints(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(1), got[0].Step)
	assert.InDelta(t, 105.0, got[0].PredictedPrice, 1e-9)
	assert.True(t, got[1].OpenTime.Equal(open.Add(2*time.Hour)))

	_, err = repo.GetPoints(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
