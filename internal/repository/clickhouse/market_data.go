package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"candlecast/internal/domain/market_data"
	"candlecast/pkg/errors"
)

// Compile-time check
var _ market_data.Repository = (*MarketDataRepository)(nil)

const createOHLCVTable = `
	CREATE TABLE IF NOT EXISTS ohlcv (
		exchange     LowCardinality(String),
		symbol       LowCardinality(String),
		timeframe    LowCardinality(String),
		open_time    DateTime64(3, 'UTC'),
		open         Float64,
		high         Float64,
		low          Float64,
		close        Float64,
		volume       Float64,
		quote_volume Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (exchange, symbol, timeframe, open_time)`

// MarketDataRepository implements market_data.Repository using ClickHouse
type MarketDataRepository struct {
	conn driver.Conn
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(conn driver.Conn) *MarketDataRepository {
	return &MarketDataRepository{conn: conn}
}

// Migrate creates the candle table when it does not exist
func (r *MarketDataRepository) Migrate(ctx context.Context) error {
	return errors.Wrap(r.conn.Exec(ctx, createOHLCVTable), "create ohlcv table")
}

// InsertOHLCV inserts OHLCV candles in batch
func (r *MarketDataRepository) InsertOHLCV(ctx context.Context, candles []market_data.OHLCV) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO ohlcv (
			exchange, symbol, timeframe, open_time,
			open, high, low, close, volume, quote_volume
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, candle := range candles {
		err := batch.Append(
			candle.Exchange, candle.Symbol, candle.Timeframe, candle.OpenTime,
			candle.Open, candle.High, candle.Low, candle.Close,
			candle.Volume, candle.Turnover,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append candle")
		}
	}

	return errors.Wrap(batch.Send(), "failed to send batch")
}

// GetOHLCV retrieves candles matching the query, most recent first
func (r *MarketDataRepository) GetOHLCV(ctx context.Context, query market_data.OHLCVQuery) ([]market_data.OHLCV, error) {
	var candles []market_data.OHLCV

	sql, args := buildOHLCVQuery(query)
	if err := r.conn.Select(ctx, &candles, sql, args...); err != nil {
		return nil, errors.Wrap(err, "select ohlcv")
	}
	return candles, nil
}

// LoadSeries returns the most recent query.Limit candles in chronological order
func (r *MarketDataRepository) LoadSeries(ctx context.Context, query market_data.OHLCVQuery) (market_data.Series, error) {
	candles, err := r.GetOHLCV(ctx, query)
	if err != nil {
		return nil, err
	}
	return market_data.Reversed(candles), nil
}

func buildOHLCVQuery(query market_data.OHLCVQuery) (string, []interface{}) {
	sql := `
		SELECT exchange, symbol, timeframe, open_time, open, high, low, close, volume, quote_volume
		FROM ohlcv FINAL
		WHERE symbol = $1 AND timeframe = $2`

	args := []interface{}{query.Symbol, query.Timeframe}

	if query.Exchange != "" {
		sql += fmt.Sprintf(` AND exchange = $%d`, len(args)+1)
		args = append(args, query.Exchange)
	}

	if !query.StartTime.IsZero() {
		sql += fmt.Sprintf(` AND open_time >= $%d`, len(args)+1)
		args = append(args, query.StartTime)
	}

	if !query.EndTime.IsZero() {
		sql += fmt.Sprintf(` AND open_time <= $%d`, len(args)+1)
		args = append(args, query.EndTime)
	}

	sql += ` ORDER BY open_time DESC`

	if query.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, query.Limit)
	}

	return sql, args
}
