package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"candlecast/internal/adapters/clickhouse"
	"candlecast/internal/adapters/config"
	"candlecast/internal/adapters/csvexport"
	"candlecast/internal/adapters/datafile"
	"candlecast/internal/adapters/errors/noop"
	"candlecast/internal/adapters/errors/sentry"
	"candlecast/internal/adapters/kafka"
	"candlecast/internal/adapters/redis"
	"candlecast/internal/domain/market_data"
	"candlecast/internal/events"
	"candlecast/internal/metrics"
	"candlecast/internal/ml/linear"
	"candlecast/internal/ml/onnx"
	"candlecast/internal/ml/predictor"
	chrepo "candlecast/internal/repository/clickhouse"
	filerepo "candlecast/internal/repository/file"
	redisrepo "candlecast/internal/repository/redis"
	"candlecast/internal/services/forecasting"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
	"candlecast/pkg/reconnect"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Cancel the run on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(ctx, cfg, errorTracker, log)
	cancel()

	if err != nil {
		log.ErrorWithContext(context.Background(), err, map[string]string{
			"component": "main",
			"model_id":  cfg.Model.ID,
		})
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if ferr := errorTracker.Flush(flushCtx); ferr != nil {
		log.Warnf("Failed to flush error tracker: %v", ferr)
	}
	flushCancel()

	if err != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.Model.ID)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// resources collects everything that must be closed after the run
type resources struct {
	closers []func() error
}

func (r *resources) add(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *resources) close(log *logger.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Warnf("Failed to close resource: %v", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, tracker errors.Tracker, log *logger.Logger) error {
	started := time.Now()

	res := &resources{}
	defer res.close(log)

	connector := reconnect.NewManager(reconnect.Config{
		MinBackoff: cfg.App.ConnectBackoff,
		MaxRetries: cfg.App.ConnectRetries,
	}, log)

	var ch *clickhouse.Client
	if cfg.ClickHouse.Enabled() {
		err := connector.Connect(ctx, "clickhouse", func(ctx context.Context) error {
			client, err := clickhouse.NewClient(ctx, cfg.ClickHouse)
			ch = client
			return err
		})
		if err != nil {
			return err
		}
		res.add(ch.Close)
		log.Infow("ClickHouse connected", "host", cfg.ClickHouse.Host, "db", cfg.ClickHouse.Database)
	}

	candles, err := initCandleSource(ctx, cfg, ch)
	if err != nil {
		return err
	}

	models, trainer, err := initModels(ctx, cfg, connector, res, log)
	if err != nil {
		return err
	}

	sinks, err := initSinks(ctx, cfg, ch, res, log)
	if err != nil {
		return err
	}

	svc := forecasting.NewService(candles, models, trainer, sinks, tracker, serviceOptions(cfg), log)

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Metrics.PushgatewayURL != "" {
		err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
		metrics.RecordSinkWrite("pushgateway", err)
		if err != nil {
			log.Warnf("Failed to push metrics: %v", err)
		}
	}

	log.Infow("Run finished",
		"run_id", report.Run.RunID,
		"bars", humanize.Comma(int64(len(report.Predictions))),
		"last_price", humanize.CommafWithDigits(report.PredictedPrices[len(report.PredictedPrices)-1], 2),
		"sink_errors", len(report.SinkErrors),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

func serviceOptions(cfg *config.Config) forecasting.Options {
	return forecasting.Options{
		ModelID: cfg.Model.ID,
		Backend: cfg.Model.Backend,
		Query: market_data.OHLCVQuery{
			Exchange:  cfg.Data.Exchange,
			Symbol:    cfg.Data.Symbol,
			Timeframe: cfg.Data.Timeframe,
			Limit:     cfg.Data.Limit,
		},
		WindowSize:      cfg.Forecast.WindowSize,
		BarsToPredict:   cfg.Forecast.BarsToPredict,
		TrainFraction:   cfg.Forecast.TrainFraction,
		DegenerateValue: cfg.Forecast.DegenerateValue,
		Train: predictor.TrainParams{
			Epochs:       cfg.Forecast.Epochs,
			BatchSize:    cfg.Forecast.BatchSize,
			LearningRate: cfg.Forecast.LearningRate,
			Seed:         cfg.Forecast.Seed,
		},
	}
}

func initCandleSource(ctx context.Context, cfg *config.Config, ch *clickhouse.Client) (market_data.Repository, error) {
	if cfg.Data.Source == "clickhouse" {
		repo := chrepo.NewMarketDataRepository(ch.Conn())
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return datafile.NewRepository(cfg.Data.Path), nil
}

// initModels picks the predictor repository and, for trainable backends, the trainer
func initModels(ctx context.Context, cfg *config.Config, connector *reconnect.Manager, res *resources, log *logger.Logger) (predictor.Repository, predictor.Trainer, error) {
	if cfg.Model.Backend == "onnx" {
		repo := onnx.NewRepository(cfg.Model.Dir, onnx.Options{
			InputName:   cfg.Model.ONNXInput,
			OutputName:  cfg.Model.ONNXOutput,
			LibraryPath: cfg.Model.ONNXLibrary,
			WindowSize:  cfg.Forecast.WindowSize,
		})
		return repo, nil, nil
	}

	var store predictor.ArtifactStore
	switch cfg.Model.Store {
	case "redis":
		var client *redis.Client
		err := connector.Connect(ctx, "redis", func(ctx context.Context) error {
			c, err := redis.NewClient(ctx, cfg.Redis)
			client = c
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		res.add(client.Close)
		store = redisrepo.NewModelStore(client.Client(), cfg.Redis.KeyPrefix, cfg.Redis.ModelTTL)
		log.Infow("Model store: redis", "addr", cfg.Redis.Addr())
	default:
		store = filerepo.NewModelStore(cfg.Model.Dir, ".json")
		log.Infow("Model store: file", "dir", cfg.Model.Dir)
	}

	return linear.NewRepository(store), linear.NewTrainer(), nil
}

func initSinks(ctx context.Context, cfg *config.Config, ch *clickhouse.Client, res *resources, log *logger.Logger) ([]forecasting.Sink, error) {
	var sinks []forecasting.Sink

	if cfg.Forecast.OutputCSV != "" {
		sinks = append(sinks, csvexport.NewWriter(cfg.Forecast.OutputCSV))
	}

	if ch != nil {
		repo := chrepo.NewForecastRepository(ch.Conn())
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, forecasting.RepositorySink("clickhouse", repo))
	}

	if cfg.Kafka.Enabled() {
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = kafka.TopicForecastsCompleted
		}
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers, WriteTimeout: 10 * time.Second})
		res.add(producer.Close)
		sinks = append(sinks, forecasting.PublisherSink("kafka", events.NewForecastPublisher(producer, topic, log)))
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	log.Infow("Sinks configured", "sinks", names)
	return sinks, nil
}
