// Package linreg is a one-step baseline: ordinary least squares of the
// close price on [open time, open price].
package linreg

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"candlecast/pkg/errors"
)

// Model is a fitted OLS regression. Features are standardized with the
// training means and deviations before the coefficients apply.
type Model struct {
	Intercept float64
	Coef      []float64
	Means     []float64
	Scales    []float64
}

// Fit solves least squares for y ~ X. NaN features are replaced with the
// column mean of the finite values.
func Fit(x [][]float64, y []float64) (*Model, error) {
	if len(x) != len(y) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "have %d rows and %d targets", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, errors.Wrap(errors.ErrInsufficientHistory, "no training rows")
	}

	cols := len(x[0])
	if len(x) <= cols {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory,
			"need more than %d rows for %d features, have %d", cols, cols, len(x))
	}

	m := &Model{
		Coef:   make([]float64, cols),
		Means:  make([]float64, cols),
		Scales: make([]float64, cols),
	}

	column := make([]float64, 0, len(x))
	for c := 0; c < cols; c++ {
		column = column[:0]
		for i, row := range x {
			if len(row) != cols {
				return nil, errors.Wrapf(errors.ErrInvalidInput, "row %d has %d features, want %d", i, len(row), cols)
			}
			if !math.IsNaN(row[c]) {
				column = append(column, row[c])
			}
		}
		if len(column) == 0 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "feature %d has no finite values", c)
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Means[c], m.Scales[c] = mean, std
	}

	design := mat.NewDense(len(x), cols+1, nil)
	for i, row := range x {
		design.Set(i, 0, 1)
		for c, v := range m.standardize(row) {
			design.Set(i, c+1, v)
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return nil, errors.Wrapf(errors.ErrPredictorFailure, "least squares: %v", err)
	}

	m.Intercept = beta.AtVec(0)
	for c := range m.Coef {
		m.Coef[c] = beta.AtVec(c + 1)
	}
	return m, nil
}

// Predict evaluates the regression for one feature row
func (m *Model) Predict(row []float64) (float64, error) {
	if len(row) != len(m.Coef) {
		return 0, errors.Wrapf(errors.ErrPredictorFailure, "row has %d features, model has %d", len(row), len(m.Coef))
	}

	y := m.Intercept
	for c, v := range m.standardize(row) {
		y += m.Coef[c] * v
	}
	return y, nil
}

func (m *Model) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for c, v := range row {
		if math.IsNaN(v) {
			v = m.Means[c]
		}
		out[c] = (v - m.Means[c]) / m.Scales[c]
	}
	return out
}
