package recursive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/ml/features"
	"candlecast/internal/ml/scaling"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
)

// stubModel returns a fixed value and records every window it sees
type stubModel struct {
	value   float64
	windows []window.Window
	failAt  int
	err     error
}

func (m *stubModel) Predict(w window.Window) (float64, error) {
	m.windows = append(m.windows, w)
	if m.err != nil && len(m.windows)-1 == m.failAt {
		return 0, m.err
	}
	return m.value, nil
}

func newForecaster(t *testing.T, windowSize int) *Forecaster {
	t.Helper()
	engine, err := features.NewEngine(windowSize)
	require.NoError(t, err)
	return New(engine, scaling.NewFrameScaler(0))
}

func scaledHistory(t *testing.T, windowSize int, closes []float64) *forecast.Frame {
	t.Helper()
	engine, err := features.NewEngine(windowSize)
	require.NoError(t, err)

	sma, rsi, err := engine.Compute(closes)
	require.NoError(t, err)
	frame, err := forecast.NewFrame(closes, sma, rsi)
	require.NoError(t, err)
	require.NoError(t, scaling.NewFrameScaler(0).RescaleFullHistory(frame))
	return frame
}

func TestForecaster_ConstantStub(t *testing.T) {
	history := scaledHistory(t, 4, []float64{10, 11, 13, 12, 14, 15, 13, 16, 17, 15})
	model := &stubModel{value: 0.5}

	result, err := newForecaster(t, 4).Forecast(context.Background(), model, history, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.5}, result.Predictions)
	assert.Equal(t, history.Len()+2, result.Frame.Len())
	assert.Equal(t, history.Len(), result.HistoryLength)
	assert.Equal(t, 10, history.Len(), "history must not be modified")
	require.Len(t, model.windows, 2)
}

func TestForecaster_ProducesExactlyN(t *testing.T) {
	history := scaledHistory(t, 3, []float64{5, 4, 6, 7, 5, 8})

	for _, n := range []int{1, 5, 25} {
		result, err := newForecaster(t, 3).Forecast(context.Background(), &stubModel{value: 0.3}, history, n)
		require.NoError(t, err)
		assert.Len(t, result.Predictions, n)
		assert.Equal(t, history.Len()+n, result.Frame.Len())

		for _, c := range forecast.Columns {
			for i, v := range result.Frame.Column(c) {
				assert.GreaterOrEqual(t, v, 0.0, "%s[%d]", c, i)
				assert.LessOrEqual(t, v, 1.0, "%s[%d]", c, i)
			}
		}
	}
}

func TestForecaster_Step(t *testing.T) {
	// Columns span [0, 1] already so close and SMA rescaling is the identity
	frame, err := forecast.NewFrame(
		[]float64{0, 1, 0.5, 0.25},
		[]float64{0, 1, 0.5, 0.5},
		[]float64{0, 1, 0.5, 0.5},
	)
	require.NoError(t, err)
	model := &stubModel{value: 0.75}

	y, err := newForecaster(t, 3).Step(frame, model)
	require.NoError(t, err)
	assert.Equal(t, 0.75, y)

	// Model saw rows 1..3
	require.Len(t, model.windows, 1)
	assert.Equal(t, []float64{1, 1, 1, 0.5, 0.5, 0.5, 0.25, 0.5, 0.5}, model.windows[0].Values())

	require.Equal(t, 5, frame.Len())
	assert.InDeltaSlice(t, []float64{0, 1, 0.5, 0.25, 0.75}, frame.Column(forecast.ColumnClose), 1e-12)

	// SMA[4] = mean(0.5, 0.25, 0.75)
	assert.InDelta(t, 0.5, frame.Row(4).SMA, 1e-12)

	// RSI[4] over deltas (-0.5, -0.25, +0.5) = 100 - 100/(1 + 0.5/0.75) = 40,
	// then the RSI column is refit with max 40
	assert.InDeltaSlice(t, []float64{0, 0.025, 0.0125, 0.0125, 1}, frame.Column(forecast.ColumnRSI), 1e-12)
}

func TestForecaster_RescalesHistoryEveryStep(t *testing.T) {
	history := scaledHistory(t, 3, []float64{1, 2, 3, 4, 5, 6})

	// A prediction above the historical max moves every earlier scaled close
	result, err := newForecaster(t, 3).Forecast(context.Background(), &stubModel{value: 2}, history, 1)
	require.NoError(t, err)

	closes := result.Frame.Column(forecast.ColumnClose)
	assert.Equal(t, 1.0, closes[len(closes)-1])
	assert.InDelta(t, 0.5, closes[len(closes)-2], 1e-12)
	assert.Equal(t, []float64{2}, result.Predictions, "predictions are recorded before rescaling")
}

func TestForecaster_PredictorFailure(t *testing.T) {
	history := scaledHistory(t, 3, []float64{1, 3, 2, 4, 3, 5})
	model := &stubModel{value: 0.5, failAt: 2, err: errors.New("shape mismatch")}

	_, err := newForecaster(t, 3).Forecast(context.Background(), model, history, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPredictorFailure))

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Step)
	assert.Contains(t, err.Error(), "forecast step 2")
}

func TestForecaster_InvalidInput(t *testing.T) {
	f := newForecaster(t, 4)

	short, err := forecast.NewFrame([]float64{0, 1, 0}, []float64{0, 1, 0}, []float64{0, 1, 0})
	require.NoError(t, err)
	_, err = f.Forecast(context.Background(), &stubModel{}, short, 2)
	assert.True(t, errors.Is(err, errors.ErrInsufficientHistory))

	history := scaledHistory(t, 4, []float64{1, 2, 3, 4, 5})
	_, err = f.Forecast(context.Background(), &stubModel{}, history, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestForecaster_Cancelled(t *testing.T) {
	history := scaledHistory(t, 3, []float64{1, 3, 2, 4, 3, 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newForecaster(t, 3).Forecast(ctx, &stubModel{value: 0.5}, history, 3)
	assert.ErrorIs(t, err, context.Canceled)
}
