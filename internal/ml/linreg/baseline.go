package linreg

import (
	"time"

	"candlecast/internal/domain/market_data"
	"candlecast/pkg/errors"
)

// Result compares the baseline prediction of the last candle's close with its actual value
type Result struct {
	OpenTime  time.Time
	Predicted float64
	Actual    float64
	Model     *Model
}

// Error returns predicted minus actual
func (r Result) Error() float64 {
	return r.Predicted - r.Actual
}

// Features returns [open time in ms, open] per candle and the closes as targets
func Features(series market_data.Series) ([][]float64, []float64) {
	x := make([][]float64, series.Len())
	y := make([]float64, series.Len())
	for i, c := range series {
		x[i] = []float64{float64(c.OpenTime.UnixMilli()), c.Open}
		y[i] = c.Close
	}
	return x, y
}

// Baseline fits on every candle but the last and predicts the last one
func Baseline(series market_data.Series) (*Result, error) {
	if series.Len() < 2 {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "baseline needs at least 2 candles, have %d", series.Len())
	}

	x, y := Features(series)
	n := len(x) - 1

	model, err := Fit(x[:n], y[:n])
	if err != nil {
		return nil, err
	}

	predicted, err := model.Predict(x[n])
	if err != nil {
		return nil, err
	}

	return &Result{
		OpenTime:  series[n].OpenTime,
		Predicted: predicted,
		Actual:    y[n],
		Model:     model,
	}, nil
}
