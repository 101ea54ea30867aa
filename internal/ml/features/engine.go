// Package features derives the moving-average and relative-strength inputs
// of the forecasting model from a close price column.
package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"candlecast/pkg/errors"
)

const (
	// RSIAllGains is reported when a window has gains but no losses (RS = +Inf)
	RSIAllGains = 100.0
	// RSIFlat is reported when a window has neither gains nor losses (RS = 0/0)
	RSIFlat = 50.0
)

// Engine computes SMA and RSI over a fixed trailing window
type Engine struct {
	windowSize int
}

// NewEngine creates an engine for the given window size (at least 2)
func NewEngine(windowSize int) (*Engine, error) {
	if windowSize < 2 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "window size must be at least 2, got %d", windowSize)
	}
	return &Engine{windowSize: windowSize}, nil
}

// WindowSize returns the trailing window length
func (e *Engine) WindowSize() int {
	return e.windowSize
}

// Compute returns SMA and RSI columns aligned with closes.
// The first windowSize-1 entries of each are back-filled with the first
// defined value. Pure: the input is not modified.
func (e *Engine) Compute(closes []float64) (sma, rsi []float64, err error) {
	sma, err = e.SMA(closes)
	if err != nil {
		return nil, nil, err
	}
	rsi, err = e.RSI(closes)
	if err != nil {
		return nil, nil, err
	}
	return sma, rsi, nil
}

// SMA returns the back-filled simple moving average column
func (e *Engine) SMA(closes []float64) ([]float64, error) {
	if err := e.checkLength(closes, "SMA"); err != nil {
		return nil, err
	}

	sma := talib.Sma(closes, e.windowSize)
	backfill(sma, e.windowSize-1)
	return sma, nil
}

// SMAAt returns mean(closes[t-windowSize+1 .. t]) without back-fill
func (e *Engine) SMAAt(closes []float64, t int) (float64, error) {
	if t < e.windowSize-1 || t >= len(closes) {
		return 0, errors.Wrapf(errors.ErrInsufficientHistory,
			"SMA at %d needs %d values ending there, have %d", t, e.windowSize, len(closes))
	}

	sum := 0.0
	for _, v := range closes[t-e.windowSize+1 : t+1] {
		sum += v
	}
	return sum / float64(e.windowSize), nil
}

// RSI returns the back-filled relative strength index column.
//
// delta[0] is taken as 0, so the first defined value sits at windowSize-1,
// the same index as the SMA. Gains and losses are averaged with a plain
// rolling mean over the trailing windowSize deltas.
func (e *Engine) RSI(closes []float64) ([]float64, error) {
	if err := e.checkLength(closes, "RSI"); err != nil {
		return nil, err
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	w := e.windowSize
	rsi := make([]float64, len(closes))
	for i := w - 1; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - w + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		rsi[i] = relativeStrength(gainSum/float64(w), lossSum/float64(w))
	}

	backfill(rsi, w-1)
	return rsi, nil
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return RSIFlat
		}
		return RSIAllGains
	}
	rs := avgGain / avgLoss
	value := 100 - 100/(1+rs)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return RSIFlat
	}
	return value
}

func (e *Engine) checkLength(closes []float64, indicator string) error {
	if len(closes) < e.windowSize {
		return errors.Wrapf(errors.ErrInsufficientHistory,
			"%s requires at least %d values, got %d", indicator, e.windowSize, len(closes))
	}
	return nil
}

// backfill copies values[first] over values[0:first]
func backfill(values []float64, first int) {
	for i := 0; i < first; i++ {
		values[i] = values[first]
	}
}
