package market_data

import (
	"context"
)

// Repository is a source of historical candles
type Repository interface {
	// GetOHLCV returns candles matching the query, most recent first
	GetOHLCV(ctx context.Context, query OHLCVQuery) ([]OHLCV, error)

	// LoadSeries returns the candles matching the query in chronological order
	LoadSeries(ctx context.Context, query OHLCVQuery) (Series, error)
}
