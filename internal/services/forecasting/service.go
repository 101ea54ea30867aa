package forecasting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/domain/market_data"
	"candlecast/internal/metrics"
	"candlecast/internal/ml/features"
	"candlecast/internal/ml/predictor"
	"candlecast/internal/ml/recursive"
	"candlecast/internal/ml/scaling"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Options configures one forecasting run
type Options struct {
	ModelID         string
	Backend         string // label only, used in metrics
	Query           market_data.OHLCVQuery
	WindowSize      int
	BarsToPredict   int
	TrainFraction   float64
	DegenerateValue float64
	Train           predictor.TrainParams
}

// Sink receives a completed forecast. Sinks run after predictions exist;
// their failures are logged and never fail the run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run forecast.Run, points []forecast.Point) error
}

// Report is the outcome of a forecasting run
type Report struct {
	Run             forecast.Run
	Predictions     []float64 // scaled domain, one per step
	PredictedPrices []float64 // Predictions mapped back through the raw close range
	Points          []forecast.Point
	Frame           *forecast.Frame
	// ActualTail holds the scaled historical closes after the training split.
	// It is empty when the model was loaded instead of trained.
	ActualTail []float64
	SinkErrors map[string]error
}

// Service orchestrates load -> features -> model -> recursive forecast -> sinks
type Service struct {
	candles market_data.Repository
	models  predictor.Repository
	trainer predictor.Trainer // nil for load-only backends
	sinks   []Sink
	tracker errors.Tracker
	opts    Options
	log     *logger.Logger

	now      func() time.Time
	newRunID func() string
}

// NewService creates a forecasting service. trainer may be nil, in which
// case a missing model fails the run.
func NewService(
	candles market_data.Repository,
	models predictor.Repository,
	trainer predictor.Trainer,
	sinks []Sink,
	tracker errors.Tracker,
	opts Options,
	log *logger.Logger,
) *Service {
	return &Service{
		candles:  candles,
		models:   models,
		trainer:  trainer,
		sinks:    sinks,
		tracker:  tracker,
		opts:     opts,
		log:      log.With("component", "forecasting", "model_id", opts.ModelID),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// Run executes one forecasting run end to end
func (s *Service) Run(ctx context.Context) (*Report, error) {
	runID := s.newRunID()
	log := s.log.With("run_id", runID)
	var lc Lifecycle

	engine, err := features.NewEngine(s.opts.WindowSize)
	if err != nil {
		return nil, err
	}

	series, err := s.loadSeries(ctx)
	if err != nil {
		return nil, err
	}

	frame, closeScaler, err := s.buildFrame(engine, series)
	if err != nil {
		return nil, err
	}

	model, trained, actualTail, err := s.resolveModel(ctx, &lc, frame)
	if err != nil {
		return nil, err
	}
	defer predictor.Release(model)

	if err := lc.Advance(StageForecasting); err != nil {
		return nil, err
	}
	s.breadcrumb(ctx, StageForecasting, map[string]interface{}{"bars": s.opts.BarsToPredict})

	start := time.Now()
	forecaster := recursive.New(engine, scaling.NewFrameScaler(s.opts.DegenerateValue))
	result, err := forecaster.Forecast(ctx, model, frame, s.opts.BarsToPredict)
	metrics.RecordStage(StageForecasting.String(), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "forecast")
	}

	prices, err := closeScaler.InverseTransform(result.Predictions)
	if err != nil {
		return nil, errors.Wrap(err, "inverse transform predictions")
	}

	run := forecast.Run{
		RunID:         runID,
		ModelID:       s.opts.ModelID,
		Exchange:      s.opts.Query.Exchange,
		Symbol:        s.opts.Query.Symbol,
		Timeframe:     s.opts.Query.Timeframe,
		WindowSize:    uint32(s.opts.WindowSize),
		BarsToPredict: uint32(s.opts.BarsToPredict),
		HistoryLength: uint32(result.HistoryLength),
		Trained:       trained,
		CreatedAt:     s.now().UTC(),
	}

	report := &Report{
		Run:             run,
		Predictions:     result.Predictions,
		PredictedPrices: prices,
		Points:          buildPoints(runID, series, result.Predictions, prices),
		Frame:           result.Frame,
		ActualTail:      actualTail,
		SinkErrors:      make(map[string]error),
	}

	if err := lc.Advance(StageDone); err != nil {
		return nil, err
	}
	metrics.LastRun.Set(float64(run.CreatedAt.Unix()))

	log.Infow("Forecast completed",
		"steps", len(report.Predictions),
		"history", result.HistoryLength,
		"trained", trained,
		"first_price", first(prices),
		"last_price", last(prices),
	)

	s.writeSinks(ctx, report)
	return report, nil
}

func (s *Service) loadSeries(ctx context.Context) (market_data.Series, error) {
	start := time.Now()
	series, err := s.candles.LoadSeries(ctx, s.opts.Query)
	if err == nil {
		err = series.Validate()
	}
	if err == nil && series.Len() < s.opts.WindowSize {
		err = errors.Wrapf(errors.ErrInsufficientHistory,
			"need at least %d candles, have %d", s.opts.WindowSize, series.Len())
	}
	metrics.RecordStage("load", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "load series")
	}

	s.log.Infow("Loaded series",
		"candles", series.Len(),
		"from", series[0].OpenTime,
		"to", series[series.Len()-1].OpenTime,
	)
	s.breadcrumb(ctx, StageInit, map[string]interface{}{"candles": series.Len()})
	return series, nil
}

// buildFrame computes the features and applies the initial scaling. The
// returned scaler is fitted on the raw closes and maps predictions to prices.
func (s *Service) buildFrame(engine *features.Engine, series market_data.Series) (*forecast.Frame, *scaling.MinMax, error) {
	start := time.Now()
	frame, closeScaler, err := s.computeFrame(engine, series)
	metrics.RecordStage("features", time.Since(start), err)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build features")
	}
	return frame, closeScaler, nil
}

func (s *Service) computeFrame(engine *features.Engine, series market_data.Series) (*forecast.Frame, *scaling.MinMax, error) {
	closes := series.Closes()
	sma, rsi, err := engine.Compute(closes)
	if err != nil {
		return nil, nil, err
	}

	closeScaler := scaling.NewMinMax(s.opts.DegenerateValue)
	if err := closeScaler.Fit(closes); err != nil {
		return nil, nil, err
	}

	frame, err := forecast.NewFrame(closes, sma, rsi)
	if err != nil {
		return nil, nil, err
	}
	if err := scaling.NewFrameScaler(s.opts.DegenerateValue).RescaleFullHistory(frame); err != nil {
		return nil, nil, err
	}
	return frame, closeScaler, nil
}

// resolveModel loads the model or, when none is stored, trains and saves one
func (s *Service) resolveModel(ctx context.Context, lc *Lifecycle, frame *forecast.Frame) (predictor.Model, bool, []float64, error) {
	start := time.Now()
	lookup, err := s.models.Load(ctx, s.opts.ModelID)
	if err != nil {
		metrics.ModelLoads.WithLabelValues(s.opts.Backend, "error").Inc()
		return nil, false, nil, errors.Wrapf(err, "load model %s", s.opts.ModelID)
	}

	if model, ok := lookup.Model(); ok {
		metrics.ModelLoads.WithLabelValues(s.opts.Backend, "found").Inc()
		if err := lc.Advance(StageModelReady); err != nil {
			return nil, false, nil, err
		}
		metrics.RecordStage(StageModelReady.String(), time.Since(start), nil)
		s.breadcrumb(ctx, StageModelReady, nil)
		s.log.Infow("Model loaded", "backend", s.opts.Backend)
		return model, false, nil, nil
	}

	metrics.ModelLoads.WithLabelValues(s.opts.Backend, "not_found").Inc()
	if err := lc.Advance(StageModelTraining); err != nil {
		return nil, false, nil, err
	}
	if s.trainer == nil {
		return nil, false, nil, errors.Wrapf(errors.ErrNotFound,
			"model %s not found and backend %s cannot train", s.opts.ModelID, s.opts.Backend)
	}

	trainEnd := int(float64(frame.Len()) * s.opts.TrainFraction)
	s.breadcrumb(ctx, StageModelTraining, map[string]interface{}{"train_end": trainEnd})

	model, err := s.train(ctx, frame, trainEnd)
	metrics.RecordStage(StageModelTraining.String(), time.Since(start), err)
	if err != nil {
		return nil, false, nil, err
	}

	var tail []float64
	if trainEnd < frame.Len() {
		tail = frame.Column(forecast.ColumnClose)[trainEnd:]
	}
	return model, true, tail, nil
}

func (s *Service) train(ctx context.Context, frame *forecast.Frame, trainEnd int) (predictor.Model, error) {
	windows, targets, err := window.TrainingSet(frame.Rows(), s.opts.WindowSize, trainEnd)
	if err != nil {
		return nil, errors.Wrap(err, "build training set")
	}

	s.log.Infow("Training model",
		"samples", len(windows),
		"epochs", s.opts.Train.Epochs,
		"batch_size", s.opts.Train.BatchSize,
	)

	model, err := s.trainer.Train(ctx, windows, targets, s.opts.Train)
	if err != nil {
		return nil, errors.Wrap(err, "train model")
	}

	if lossy, ok := model.(interface{ TrainingLoss() float64 }); ok {
		metrics.TrainingLoss.Set(lossy.TrainingLoss())
	}

	if err := s.models.Save(ctx, s.opts.ModelID, model); err != nil {
		return nil, errors.Wrapf(err, "save model %s", s.opts.ModelID)
	}
	return model, nil
}

func (s *Service) writeSinks(ctx context.Context, report *Report) {
	for _, sink := range s.sinks {
		start := time.Now()
		err := sink.Write(ctx, report.Run, report.Points)
		metrics.RecordSinkWrite(sink.Name(), err)
		metrics.RecordStage("sink", time.Since(start), err)
		if err != nil {
			report.SinkErrors[sink.Name()] = err
			s.log.ErrorWithContext(ctx, errors.Wrapf(err, "sink %s", sink.Name()), map[string]string{
				"component": "forecasting",
				"sink":      sink.Name(),
				"run_id":    report.Run.RunID,
			})
			continue
		}
		s.log.Debugw("Sink written", "sink", sink.Name(), "points", len(report.Points))
	}
}

func (s *Service) breadcrumb(ctx context.Context, stage Stage, data map[string]interface{}) {
	if s.tracker == nil {
		return
	}
	s.tracker.AddBreadcrumb(ctx, "stage "+stage.String(), "forecasting", errors.LevelInfo, data)
}

// buildPoints projects an open time for every step from the spacing of the
// last two candles. With a single candle the open times stay at the last one.
func buildPoints(runID string, series market_data.Series, scaled, prices []float64) []forecast.Point {
	lastOpen := series[series.Len()-1].OpenTime
	var interval time.Duration
	if series.Len() > 1 {
		interval = lastOpen.Sub(series[series.Len()-2].OpenTime)
	}

	points := make([]forecast.Point, len(scaled))
	for i := range scaled {
		points[i] = forecast.Point{
			RunID:           runID,
			Step:            uint32(i + 1),
			OpenTime:        lastOpen.Add(time.Duration(i+1) * interval),
			PredictedScaled: scaled[i],
			PredictedPrice:  prices[i],
		}
	}
	return points
}

func first(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
