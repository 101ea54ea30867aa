// Command linreg fits the least-squares baseline on the candle file and
// predicts the close of the most recent candle.
package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"

	"candlecast/internal/adapters/config"
	"candlecast/internal/adapters/datafile"
	"candlecast/internal/domain/market_data"
	"candlecast/internal/ml/linreg"
	"candlecast/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get().With("component", "linreg")

	series, err := datafile.NewRepository(cfg.Data.Path).LoadSeries(context.Background(), market_data.OHLCVQuery{
		Exchange:  cfg.Data.Exchange,
		Symbol:    cfg.Data.Symbol,
		Timeframe: cfg.Data.Timeframe,
	})
	if err == nil {
		err = series.Validate()
	}
	if err != nil {
		log.Errorf("Failed to load %s: %v", cfg.Data.Path, err)
		_ = logger.Sync()
		os.Exit(1)
	}

	res, err := linreg.Baseline(series)
	if err != nil {
		log.Errorf("Baseline failed: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}

	log.Infow("Baseline prediction",
		"candles", series.Len(),
		"open_time", res.OpenTime,
		"predicted", humanize.CommafWithDigits(res.Predicted, 2),
		"actual", humanize.CommafWithDigits(res.Actual, 2),
		"error", res.Error(),
	)
}
