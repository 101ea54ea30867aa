package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"candlecast/internal/adapters/clickhouse"
	"candlecast/internal/adapters/config"
	"candlecast/internal/domain/market_data"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper connects to ClickHouse and closes the client when the test ends.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := clickhouse.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return &ClickHouseTestHelper{client: client}
}

// Client exposes the raw ClickHouse client for queries.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// RegisterTableCleanup deletes rows matching condition after the test completes.
// Shared tables are kept; only the test's rows go.
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = h.client.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition))
	})
}

// CandleFixture builds hourly candles for repository tests
type CandleFixture struct {
	exchange  string
	symbol    string
	timeframe string
	start     time.Time
	closes    []float64
}

// NewCandleFixture starts from a test exchange and symbol so cleanup can match them.
func NewCandleFixture() *CandleFixture {
	return &CandleFixture{
		exchange:  "test_exchange",
		symbol:    "TESTUSDT",
		timeframe: "1h",
		start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *CandleFixture) WithSymbol(symbol string) *CandleFixture {
	f.symbol = symbol
	return f
}

func (f *CandleFixture) WithStart(start time.Time) *CandleFixture {
	f.start = start
	return f
}

// WithCloses sets one candle per close, one hour apart
func (f *CandleFixture) WithCloses(closes ...float64) *CandleFixture {
	f.closes = closes
	return f
}

// Build returns the candles in chronological order
func (f *CandleFixture) Build() []market_data.OHLCV {
	candles := make([]market_data.OHLCV, len(f.closes))
	for i, c := range f.closes {
		candles[i] = market_data.OHLCV{
			Exchange:  f.exchange,
			Symbol:    f.symbol,
			Timeframe: f.timeframe,
			OpenTime:  f.start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
			Turnover:  10 * c,
		}
	}
	return candles
}
