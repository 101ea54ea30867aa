package market_data

import (
	"time"

	"candlecast/pkg/errors"
)

// OHLCV represents one candlestick
type OHLCV struct {
	Exchange  string    `ch:"exchange"`
	Symbol    string    `ch:"symbol"`
	Timeframe string    `ch:"timeframe"` // 1m, 5m, 15m, 1h, 4h, 1d
	OpenTime  time.Time `ch:"open_time"`
	Open      float64   `ch:"open"`
	High      float64   `ch:"high"`
	Low       float64   `ch:"low"`
	Close     float64   `ch:"close"`
	Volume    float64   `ch:"volume"`
	Turnover  float64   `ch:"quote_volume"` // quote-currency volume
}

// Series is a chronologically ascending run of candles for one instrument.
// It is loaded once and treated as immutable.
type Series []OHLCV

// Len returns the number of candles
func (s Series) Len() int {
	return len(s)
}

// Closes extracts close prices in chronological order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// Opens extracts open prices in chronological order
func (s Series) Opens() []float64 {
	opens := make([]float64, len(s))
	for i, c := range s {
		opens[i] = c.Open
	}
	return opens
}

// Tail returns the last n candles (or all of them when n exceeds the length)
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Validate checks that open times strictly increase.
// Gaps between candles are not checked.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].OpenTime.After(s[i-1].OpenTime) {
			return errors.Wrapf(errors.ErrDataFormat,
				"candle %d open time %s is not after %s",
				i, s[i].OpenTime.Format(time.RFC3339), s[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}

// Reversed returns a copy of candles in the opposite order.
// Exchange exports list the most recent candle first.
func Reversed(candles []OHLCV) Series {
	out := make(Series, len(candles))
	for i, c := range candles {
		out[len(candles)-1-i] = c
	}
	return out
}

// OHLCVQuery represents query parameters for OHLCV data
type OHLCVQuery struct {
	Exchange  string
	Symbol    string
	Timeframe string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}
