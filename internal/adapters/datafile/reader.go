// Package datafile reads exchange kline exports stored as whitespace-separated text.
//
// Each non-empty line holds seven numbers:
//
//	startTime_ms openPrice highPrice lowPrice closePrice volume turnover
//
// Lines are ordered most recent first, as returned by the Bybit kline endpoint.
package datafile

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"candlecast/internal/domain/market_data"
	"candlecast/pkg/errors"
)

const columnCount = 7

var columnNames = [columnCount]string{"startTime", "openPrice", "highPrice", "lowPrice", "closePrice", "volume", "turnover"}

// Compile-time check
var _ market_data.Repository = (*Repository)(nil)

// Parse reads candles in file order (most recent first).
// Any malformed line aborts with ErrDataFormat naming the line number.
func Parse(r io.Reader) ([]market_data.OHLCV, error) {
	var candles []market_data.OHLCV

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		candle, err := parseLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		candles = append(candles, candle)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read data file")
	}

	return candles, nil
}

func parseLine(line string) (market_data.OHLCV, error) {
	fields := strings.Fields(line)
	if len(fields) != columnCount {
		return market_data.OHLCV{}, errors.Wrapf(errors.ErrDataFormat,
			"expected %d columns, got %d", columnCount, len(fields))
	}

	var values [columnCount]decimal.Decimal
	for i, field := range fields {
		d, err := decimal.NewFromString(field)
		if err != nil {
			return market_data.OHLCV{}, errors.Wrapf(errors.ErrDataFormat,
				"column %s: %q is not a number", columnNames[i], field)
		}
		values[i] = d
	}

	return market_data.OHLCV{
		OpenTime: time.UnixMilli(values[0].IntPart()).UTC(),
		Open:     values[1].InexactFloat64(),
		High:     values[2].InexactFloat64(),
		Low:      values[3].InexactFloat64(),
		Close:    values[4].InexactFloat64(),
		Volume:   values[5].InexactFloat64(),
		Turnover: values[6].InexactFloat64(),
	}, nil
}

// Repository serves a single exported data file as a candle source
type Repository struct {
	path string
}

// NewRepository creates a file-backed candle source
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// GetOHLCV returns the file's candles in file order (most recent first).
// Exchange/symbol filters do not apply to a single-instrument file; StartTime,
// EndTime and Limit do.
func (r *Repository) GetOHLCV(ctx context.Context, query market_data.OHLCVQuery) ([]market_data.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open data file %s", r.path)
	}
	defer f.Close()

	candles, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", r.path)
	}

	filtered := candles[:0]
	for _, c := range candles {
		if !query.StartTime.IsZero() && c.OpenTime.Before(query.StartTime) {
			continue
		}
		if !query.EndTime.IsZero() && c.OpenTime.After(query.EndTime) {
			continue
		}
		c.Exchange, c.Symbol, c.Timeframe = query.Exchange, query.Symbol, query.Timeframe
		filtered = append(filtered, c)
	}
	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
	}

	return filtered, nil
}

// LoadSeries returns the file's candles in chronological order
func (r *Repository) LoadSeries(ctx context.Context, query market_data.OHLCVQuery) (market_data.Series, error) {
	candles, err := r.GetOHLCV(ctx, query)
	if err != nil {
		return nil, err
	}
	return market_data.Reversed(candles), nil
}
