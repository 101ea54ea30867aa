// Package window slices feature frames into fixed-length model inputs.
package window

import (
	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
)

// Window is a size x 3 block of feature rows (close, SMA, RSI), stored
// row-major so it can be handed to a tensor without reshaping.
type Window struct {
	size   int
	values []float64
}

// New wraps row-major values as a window of size rows
func New(size int, values []float64) (Window, error) {
	if size <= 0 || len(values) != size*forecast.FeatureCount {
		return Window{}, errors.Wrapf(errors.ErrInvalidInput,
			"window of %d rows needs %d values, got %d", size, size*forecast.FeatureCount, len(values))
	}
	return Window{size: size, values: values}, nil
}

// Size returns the number of rows
func (w Window) Size() int {
	return w.size
}

// Shape returns (rows, features)
func (w Window) Shape() (int, int) {
	return w.size, forecast.FeatureCount
}

// At returns the value at row i for column c
func (w Window) At(i int, c forecast.Column) float64 {
	return w.values[i*forecast.FeatureCount+int(c)]
}

// Values returns the row-major backing slice. Callers must not modify it.
func (w Window) Values() []float64 {
	return w.values
}

// Float32 returns a row-major float32 copy for runtimes that expect single precision
func (w Window) Float32() []float32 {
	out := make([]float32, len(w.values))
	for i, v := range w.values {
		out[i] = float32(v)
	}
	return out
}

// At returns rows[end-size : end] as a window.
// end must satisfy size <= end <= len(rows).
func At(rows []forecast.FeatureRow, end, size int) (Window, error) {
	if size <= 0 {
		return Window{}, errors.Wrapf(errors.ErrInvalidInput, "window size must be positive, got %d", size)
	}
	if end < size || end > len(rows) {
		return Window{}, errors.Wrapf(errors.ErrInsufficientHistory,
			"window of %d rows ending at %d, have %d rows", size, end, len(rows))
	}

	values := make([]float64, 0, size*forecast.FeatureCount)
	for _, r := range rows[end-size : end] {
		values = append(values, r.Close, r.SMA, r.RSI)
	}
	return Window{size: size, values: values}, nil
}

// TrainingSet builds one window per index in [size, trainEnd), each paired
// with the close at that index as target. trainEnd is clipped to len(rows).
func TrainingSet(rows []forecast.FeatureRow, size, trainEnd int) ([]Window, []float64, error) {
	if trainEnd > len(rows) {
		trainEnd = len(rows)
	}
	if trainEnd <= size {
		return nil, nil, errors.Wrapf(errors.ErrInsufficientHistory,
			"training needs more than %d rows before the split, have %d", size, trainEnd)
	}

	windows := make([]Window, 0, trainEnd-size)
	targets := make([]float64, 0, trainEnd-size)
	for i := size; i < trainEnd; i++ {
		w, err := At(rows, i, size)
		if err != nil {
			return nil, nil, err
		}
		windows = append(windows, w)
		targets = append(targets, rows[i].Close)
	}
	return windows, targets, nil
}
