package scaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
)

func TestMinMax_FitTransform(t *testing.T) {
	s := NewMinMax(0)

	out, err := s.FitTransform([]float64{10, 15, 20, 12.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 0.25}, out)

	min, max := s.Params()
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 20.0, max)
	assert.False(t, s.Degenerate())
}

func TestMinMax_OutputBounded(t *testing.T) {
	s := NewMinMax(0)

	out, err := s.FitTransform([]float64{-3.7, 1e6, 0.001, 42, -1e-9, 73.25})
	require.NoError(t, err)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestMinMax_RefitsEveryCall(t *testing.T) {
	s := NewMinMax(0)

	first, err := s.FitTransform([]float64{0, 5, 10})
	require.NoError(t, err)
	second, err := s.FitTransform([]float64{0, 5, 10, 20})
	require.NoError(t, err)

	assert.Equal(t, 0.5, first[1])
	assert.Equal(t, 0.25, second[1], "historical value shifts after the column grows")
}

func TestMinMax_Degenerate(t *testing.T) {
	for _, constant := range []float64{0, 0.5} {
		s := NewMinMax(constant)

		out, err := s.FitTransform([]float64{3, 3, 3})
		require.NoError(t, err)
		assert.Equal(t, []float64{constant, constant, constant}, out)
		assert.True(t, s.Degenerate())

		back, err := s.InverseTransform(out)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 3, 3}, back)
	}
}

func TestMinMax_InverseTransform(t *testing.T) {
	s := NewMinMax(0)
	_, err := s.FitTransform([]float64{100, 200})
	require.NoError(t, err)

	prices, err := s.InverseTransform([]float64{0, 0.25, 1, 1.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 125, 200, 250}, prices)
}

func TestMinMax_Errors(t *testing.T) {
	s := NewMinMax(0)

	_, err := s.Transform([]float64{1})
	assert.True(t, errors.Is(err, errors.ErrInternal))

	_, err = s.InverseTransform([]float64{1})
	assert.True(t, errors.Is(err, errors.ErrInternal))

	_, err = s.FitTransform(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestFrameScaler_RescaleFullHistory(t *testing.T) {
	frame, err := forecast.NewFrame(
		[]float64{10, 20, 30},
		[]float64{15, 15, 15},
		[]float64{0, 50, 100},
	)
	require.NoError(t, err)

	s := NewFrameScaler(0)
	require.NoError(t, s.RescaleFullHistory(frame))

	assert.Equal(t, []float64{0, 0.5, 1}, frame.Column(forecast.ColumnClose))
	assert.Equal(t, []float64{0, 0, 0}, frame.Column(forecast.ColumnSMA))
	assert.Equal(t, []float64{0, 0.5, 1}, frame.Column(forecast.ColumnRSI))
	assert.True(t, s.Scaler(forecast.ColumnSMA).Degenerate())

	frame.Append(forecast.FeatureRow{Close: 2, SMA: 1, RSI: 0.5})
	require.NoError(t, s.RescaleFullHistory(frame))

	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, frame.Column(forecast.ColumnClose))
	assert.Equal(t, []float64{0, 0, 0, 1}, frame.Column(forecast.ColumnSMA))
}
