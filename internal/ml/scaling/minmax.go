package scaling

import (
	"gonum.org/v1/gonum/floats"

	"candlecast/pkg/errors"
)

// MinMax maps a column linearly onto [0, 1].
//
// Every FitTransform call refits min and max from the column it is given, so
// values scaled by an earlier call are not stable across calls.
type MinMax struct {
	degenerate float64
	min        float64
	max        float64
	fitted     bool
}

// NewMinMax creates a scaler. degenerate is the output for every value of a
// zero-variance column.
func NewMinMax(degenerate float64) *MinMax {
	return &MinMax{degenerate: degenerate}
}

// Fit records min and max of column
func (s *MinMax) Fit(column []float64) error {
	if len(column) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "cannot fit scaler on empty column")
	}
	s.min = floats.Min(column)
	s.max = floats.Max(column)
	s.fitted = true
	return nil
}

// FitTransform refits on column and returns the scaled copy
func (s *MinMax) FitTransform(column []float64) ([]float64, error) {
	if err := s.Fit(column); err != nil {
		return nil, err
	}
	return s.Transform(column)
}

// Transform scales column with the last fitted parameters
func (s *MinMax) Transform(column []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errors.Wrap(errors.ErrInternal, "scaler used before fit")
	}

	out := make([]float64, len(column))
	span := s.max - s.min
	if span == 0 {
		for i := range out {
			out[i] = s.degenerate
		}
		return out, nil
	}
	for i, v := range column {
		out[i] = (v - s.min) / span
	}
	return out, nil
}

// InverseTransform maps scaled values back to the fitted range.
// For a degenerate fit every value maps back to the constant seen at fit time.
func (s *MinMax) InverseTransform(scaled []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errors.Wrap(errors.ErrInternal, "scaler used before fit")
	}

	out := make([]float64, len(scaled))
	span := s.max - s.min
	for i, v := range scaled {
		out[i] = s.min + v*span
	}
	return out, nil
}

// Params returns the fitted min and max
func (s *MinMax) Params() (min, max float64) {
	return s.min, s.max
}

// Degenerate reports whether the last fit saw a zero-variance column
func (s *MinMax) Degenerate() bool {
	return s.fitted && s.max == s.min
}
