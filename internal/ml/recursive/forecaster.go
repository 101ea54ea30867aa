// Package recursive produces multi-step forecasts by feeding each prediction
// back into the model input.
//
// Every step appends the predicted close to the frame, recomputes SMA and RSI
// for the new row, and refits the min-max scaling of all three columns over
// the whole frame. Each step is therefore O(rows) and a forecast of N bars
// costs O(rows*N). Previously scaled rows shift on every refit.
package recursive

import (
	"context"
	"fmt"
	"time"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/metrics"
	"candlecast/internal/ml/features"
	"candlecast/internal/ml/predictor"
	"candlecast/internal/ml/scaling"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

const progressEvery = 50

// StepError reports the forecast step at which the run failed
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("forecast step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result is the output of a forecasting run
type Result struct {
	// Predictions holds one scaled-domain value per step, as returned by the model
	Predictions []float64
	// Frame is the extended, rescaled feature frame: history rows then one row per step
	Frame *forecast.Frame
	// HistoryLength is the number of rows the frame had before the first step
	HistoryLength int
}

// Forecaster runs the recursive loop
type Forecaster struct {
	features *features.Engine
	scaler   *scaling.FrameScaler
	log      *logger.Logger
}

// New creates a forecaster. scaler is refit on every step.
func New(engine *features.Engine, scaler *scaling.FrameScaler) *Forecaster {
	return &Forecaster{
		features: engine,
		scaler:   scaler,
		log:      logger.Get().With("component", "recursive_forecaster"),
	}
}

// Forecast runs exactly bars steps against a copy of history.
// history must already be scaled and hold at least one window of rows;
// it is not modified.
func (f *Forecaster) Forecast(ctx context.Context, model predictor.Model, history *forecast.Frame, bars int) (*Result, error) {
	if bars < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "bars to predict must be positive, got %d", bars)
	}
	if history.Len() < f.features.WindowSize() {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory,
			"forecast needs %d rows of history, have %d", f.features.WindowSize(), history.Len())
	}

	frame := history.Clone()
	predictions := make([]float64, 0, bars)
	started := time.Now()

	for i := 0; i < bars; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Step: i, Err: err}
		}

		stepStart := time.Now()
		y, err := f.Step(frame, model)
		if err != nil {
			return nil, &StepError{Step: i, Err: err}
		}
		metrics.RecordForecastStep(time.Since(stepStart), frame.Len())

		predictions = append(predictions, y)
		if (i+1)%progressEvery == 0 {
			f.log.Debugw("Forecast progress", "step", i+1, "bars", bars, "rows", frame.Len())
		}
	}

	f.log.Infow("Forecast complete",
		"bars", bars,
		"history_rows", history.Len(),
		"frame_rows", frame.Len(),
		"elapsed", time.Since(started).String(),
	)

	return &Result{
		Predictions:   predictions,
		Frame:         frame,
		HistoryLength: history.Len(),
	}, nil
}

// Step performs one predict-append-recompute-rescale iteration on frame and
// returns the model output before rescaling.
func (f *Forecaster) Step(frame *forecast.Frame, model predictor.Model) (float64, error) {
	t := frame.Len()

	w, err := window.At(frame.Rows(), t, f.features.WindowSize())
	if err != nil {
		return 0, err
	}

	y, err := model.Predict(w)
	if err != nil {
		if !errors.Is(err, errors.ErrPredictorFailure) {
			err = errors.Wrapf(errors.ErrPredictorFailure, "%v", err)
		}
		return 0, err
	}

	frame.Append(forecast.FeatureRow{Close: y})
	closes := frame.Column(forecast.ColumnClose)

	sma, err := f.features.SMAAt(closes, t)
	if err != nil {
		return 0, err
	}
	frame.Set(t, forecast.ColumnSMA, sma)

	// Full RSI recompute over the extended close column
	rsi, err := f.features.RSI(closes)
	if err != nil {
		return 0, err
	}
	frame.Set(t, forecast.ColumnRSI, rsi[t])

	if err := f.scaler.RescaleFullHistory(frame); err != nil {
		return 0, err
	}

	return y, nil
}
