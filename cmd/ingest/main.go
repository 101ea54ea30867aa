// Command ingest copies the candle file into the ClickHouse ohlcv table so
// forecasting runs can read it with DATA_SOURCE=clickhouse.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"candlecast/internal/adapters/clickhouse"
	"candlecast/internal/adapters/config"
	"candlecast/internal/adapters/datafile"
	"candlecast/internal/domain/market_data"
	chrepo "candlecast/internal/repository/clickhouse"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

const batchSize = 5000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get().With("component", "ingest")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := ingest(ctx, cfg)
	if err != nil {
		log.Errorf("Ingest failed: %v", err)
		cancel()
		_ = logger.Sync()
		os.Exit(1)
	}

	log.Infow("Ingest complete", "candles", humanize.Comma(int64(n)), "path", cfg.Data.Path)
}

func ingest(ctx context.Context, cfg *config.Config) (int, error) {
	if !cfg.ClickHouse.Enabled() {
		return 0, errors.NewValidationError("CLICKHOUSE_HOST", "required for ingest", cfg.ClickHouse.Host)
	}

	candles, err := datafile.NewRepository(cfg.Data.Path).LoadSeries(ctx, market_data.OHLCVQuery{
		Exchange:  cfg.Data.Exchange,
		Symbol:    cfg.Data.Symbol,
		Timeframe: cfg.Data.Timeframe,
	})
	if err != nil {
		return 0, err
	}

	client, err := clickhouse.NewClient(ctx, cfg.ClickHouse)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	repo := chrepo.NewMarketDataRepository(client.Conn())
	if err := repo.Migrate(ctx); err != nil {
		return 0, err
	}

	for start := 0; start < len(candles); start += batchSize {
		end := min(start+batchSize, len(candles))
		if err := repo.InsertOHLCV(ctx, candles[start:end]); err != nil {
			return start, errors.Wrapf(err, "insert candles %d..%d", start, end)
		}
	}
	return len(candles), nil
}
