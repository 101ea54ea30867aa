package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"candlecast/pkg/errors"
)

type Config struct {
	App           AppConfig
	Forecast      ForecastConfig
	Data          DataConfig
	Model         ModelConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"candlecast"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ConnectRetries int           `envconfig:"CONNECT_MAX_RETRIES" default:"3"`
	ConnectBackoff time.Duration `envconfig:"CONNECT_BACKOFF" default:"1s"`
}

// ForecastConfig holds the recursive forecaster and training knobs
type ForecastConfig struct {
	BarsToPredict   int     `envconfig:"FORECAST_BARS_TO_PREDICT" default:"400"`
	WindowSize      int     `envconfig:"FORECAST_WINDOW_SIZE" default:"60"`
	TrainFraction   float64 `envconfig:"FORECAST_TRAIN_FRACTION" default:"0.99"`
	Epochs          int     `envconfig:"FORECAST_EPOCHS" default:"10"`
	BatchSize       int     `envconfig:"FORECAST_BATCH_SIZE" default:"32"`
	LearningRate    float64 `envconfig:"FORECAST_LEARNING_RATE" default:"0.001"`
	Seed            int64   `envconfig:"FORECAST_SEED" default:"42"`
	DegenerateValue float64 `envconfig:"FORECAST_DEGENERATE_VALUE" default:"0"`
	OutputCSV       string  `envconfig:"FORECAST_OUTPUT_CSV"`
}

// DataConfig selects where the historical series comes from
type DataConfig struct {
	Source    string `envconfig:"DATA_SOURCE" default:"file"` // file | clickhouse
	Path      string `envconfig:"DATA_PATH" default:"data.txt"`
	Exchange  string `envconfig:"DATA_EXCHANGE" default:"bybit"`
	Symbol    string `envconfig:"DATA_SYMBOL" default:"BTCUSDT"`
	Timeframe string `envconfig:"DATA_TIMEFRAME" default:"1h"`
	Limit     int    `envconfig:"DATA_LIMIT" default:"5000"`
}

// ModelConfig selects the predictor backend and where artifacts live
type ModelConfig struct {
	ID          string `envconfig:"MODEL_ID" default:"model3"`
	Backend     string `envconfig:"MODEL_BACKEND" default:"linear"` // linear | onnx
	Store       string `envconfig:"MODEL_STORE" default:"file"`     // file | redis
	Dir         string `envconfig:"MODEL_DIR" default:"models"`
	ONNXInput   string `envconfig:"MODEL_ONNX_INPUT" default:"input"`
	ONNXOutput  string `envconfig:"MODEL_ONNX_OUTPUT" default:"output"`
	ONNXLibrary string `envconfig:"MODEL_ONNX_LIBRARY"` // path to onnxruntime shared library, empty = default lookup
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"trading"`
}

// Enabled reports whether a ClickHouse host was configured
func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host      string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int           `envconfig:"REDIS_PORT" default:"6379"`
	Password  string        `envconfig:"REDIS_PASSWORD"`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string        `envconfig:"REDIS_MODEL_PREFIX" default:"model:"`
	ModelTTL  time.Duration `envconfig:"REDIS_MODEL_TTL" default:"0s"` // 0 = no expiry
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_FORECAST_TOPIC" default:"forecasts.completed"`
}

// Enabled reports whether any broker was configured
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// MetricsConfig configures the Pushgateway target for batch run metrics
type MetricsConfig struct {
	PushgatewayURL string `envconfig:"METRICS_PUSHGATEWAY_URL"`
	Job            string `envconfig:"METRICS_JOB" default:"candlecast"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks forecasting parameters and backend selections
func (c *Config) Validate() error {
	var errs errors.MultiError

	f := c.Forecast
	if f.WindowSize < 2 {
		errs.Add(errors.NewValidationError("FORECAST_WINDOW_SIZE", "must be at least 2", f.WindowSize))
	}
	if f.BarsToPredict < 1 {
		errs.Add(errors.NewValidationError("FORECAST_BARS_TO_PREDICT", "must be positive", f.BarsToPredict))
	}
	if f.TrainFraction <= 0 || f.TrainFraction > 1 {
		errs.Add(errors.NewValidationError("FORECAST_TRAIN_FRACTION", "must be in (0, 1]", f.TrainFraction))
	}
	if f.Epochs < 1 {
		errs.Add(errors.NewValidationError("FORECAST_EPOCHS", "must be positive", f.Epochs))
	}
	if f.BatchSize < 1 {
		errs.Add(errors.NewValidationError("FORECAST_BATCH_SIZE", "must be positive", f.BatchSize))
	}
	if f.LearningRate <= 0 {
		errs.Add(errors.NewValidationError("FORECAST_LEARNING_RATE", "must be positive", f.LearningRate))
	}

	switch c.Data.Source {
	case "file", "clickhouse":
	default:
		errs.Add(errors.NewValidationError("DATA_SOURCE", "must be file or clickhouse", c.Data.Source))
	}
	if c.Data.Source == "clickhouse" && !c.ClickHouse.Enabled() {
		errs.Add(errors.NewValidationError("CLICKHOUSE_HOST", "required when DATA_SOURCE=clickhouse", c.ClickHouse.Host))
	}

	switch c.Model.Backend {
	case "linear", "onnx":
	default:
		errs.Add(errors.NewValidationError("MODEL_BACKEND", "must be linear or onnx", c.Model.Backend))
	}
	switch c.Model.Store {
	case "file", "redis":
	default:
		errs.Add(errors.NewValidationError("MODEL_STORE", "must be file or redis", c.Model.Store))
	}
	if c.Model.ID == "" {
		errs.Add(errors.NewValidationError("MODEL_ID", "must not be empty", c.Model.ID))
	}

	return errs.ToError()
}
