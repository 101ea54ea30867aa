// Package scaling normalises feature columns for the sequence model.
package scaling

import (
	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
)

// FrameScaler holds one MinMax per feature column of a frame
type FrameScaler struct {
	scalers map[forecast.Column]*MinMax
}

// NewFrameScaler creates scalers for close, SMA and RSI
func NewFrameScaler(degenerate float64) *FrameScaler {
	scalers := make(map[forecast.Column]*MinMax, len(forecast.Columns))
	for _, c := range forecast.Columns {
		scalers[c] = NewMinMax(degenerate)
	}
	return &FrameScaler{scalers: scalers}
}

// RescaleFullHistory refits every column over all rows of the frame,
// synthetic rows included, and writes the scaled values back in place.
// Cost is O(rows) per call.
func (s *FrameScaler) RescaleFullHistory(frame *forecast.Frame) error {
	for _, c := range forecast.Columns {
		scaled, err := s.scalers[c].FitTransform(frame.Column(c))
		if err != nil {
			return errors.Wrapf(err, "rescale %s", c)
		}
		if err := frame.SetColumn(c, scaled); err != nil {
			return err
		}
	}
	return nil
}

// Scaler returns the scaler of one column as fitted by the last rescale
func (s *FrameScaler) Scaler(c forecast.Column) *MinMax {
	return s.scalers[c]
}
