package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every collector of a forecasting run. A batch job exits
// before it could be scraped, so the registry is pushed to a Pushgateway.
var Registry = prometheus.NewRegistry()

var (
	// Stage metrics
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "candlecast_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"}, // stage: load|features|model_ready|model_training|forecasting|sink
	)

	StageExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candlecast_stage_executions_total",
			Help: "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"}, // status: success|error
	)

	// Forecast loop metrics
	ForecastSteps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "candlecast_forecast_steps_total",
			Help: "Total number of recursive forecast steps executed",
		},
	)

	ForecastStepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "candlecast_forecast_step_duration_seconds",
			Help:    "Duration of one predict-append-recompute-rescale step",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	FrameRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "candlecast_frame_rows",
			Help: "Rows in the extended feature frame after the last step",
		},
	)

	// Model metrics
	TrainingLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "candlecast_training_loss",
			Help: "Training mean squared error of the last trained model",
		},
	)

	ModelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candlecast_model_loads_total",
			Help: "Model load attempts by outcome",
		},
		[]string{"backend", "outcome"}, // outcome: found|not_found|error
	)

	// Sink metrics
	SinkWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candlecast_sink_writes_total",
			Help: "Forecast sink writes by sink and status",
		},
		[]string{"sink", "status"}, // sink: csv|clickhouse|kafka
	)

	LastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "candlecast_last_run_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)
)

func init() {
	Registry.MustRegister(
		StageDuration,
		StageExecutions,
		ForecastSteps,
		ForecastStepDuration,
		FrameRows,
		TrainingLoss,
		ModelLoads,
		SinkWrites,
		LastRun,
	)
}

// RecordStage records a pipeline stage execution
func RecordStage(stage string, duration time.Duration, err error) {
	StageExecutions.WithLabelValues(stage, status(err)).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordForecastStep records one recursive step
func RecordForecastStep(duration time.Duration, rows int) {
	ForecastSteps.Inc()
	ForecastStepDuration.Observe(duration.Seconds())
	FrameRows.Set(float64(rows))
}

// RecordSinkWrite records a forecast sink write
func RecordSinkWrite(sink string, err error) {
	SinkWrites.WithLabelValues(sink, status(err)).Inc()
}

// Push sends the registry to a Pushgateway under job
func Push(ctx context.Context, url, job string) error {
	return push.New(url, job).
		Gatherer(Registry).
		PushContext(ctx)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
