// Package linear implements a trainable sequence predictor: a linear map from
// the flattened window (size x 3 values) plus bias to the next scaled close,
// fitted with seeded mini-batch gradient descent on mean squared error.
package linear

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/ml/predictor"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Compile-time checks
var (
	_ predictor.Model   = (*Model)(nil)
	_ predictor.Trainer = (*Trainer)(nil)
)

const initScale = 0.01

// Model is a fitted windowed linear regressor
type Model struct {
	WindowSize int       `json:"window_size"`
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Loss       float64   `json:"loss"` // training MSE after the last epoch
}

// Predict returns weights . window + bias
func (m *Model) Predict(w window.Window) (float64, error) {
	values := w.Values()
	if w.Size() != m.WindowSize || len(values) != len(m.Weights) {
		rows, cols := w.Shape()
		return 0, errors.Wrapf(errors.ErrPredictorFailure,
			"input shape %dx%d, model expects %dx%d", rows, cols, m.WindowSize, forecast.FeatureCount)
	}

	y := floats.Dot(m.Weights, values) + m.Bias
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, errors.Wrap(errors.ErrPredictorFailure, "model produced a non-finite value")
	}
	return y, nil
}

// Trainer fits Model instances
type Trainer struct {
	log *logger.Logger
}

// NewTrainer creates a trainer
func NewTrainer() *Trainer {
	return &Trainer{log: logger.Get().With("component", "linear_trainer")}
}

// Train runs params.Epochs passes of mini-batch gradient descent.
// Sample order and initial weights come from params.Seed only, so equal
// inputs and params give identical models.
func (t *Trainer) Train(ctx context.Context, windows []window.Window, targets []float64, params predictor.TrainParams) (predictor.Model, error) {
	if len(windows) == 0 || len(windows) != len(targets) {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"need matching windows and targets, got %d and %d", len(windows), len(targets))
	}
	if params.Epochs < 1 || params.BatchSize < 1 || params.LearningRate <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"invalid training params: epochs=%d batch=%d lr=%g", params.Epochs, params.BatchSize, params.LearningRate)
	}

	size := windows[0].Size()
	dim := size * forecast.FeatureCount
	for i, w := range windows {
		if w.Size() != size {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "window %d has %d rows, expected %d", i, w.Size(), size)
		}
	}

	rng := rand.New(rand.NewSource(params.Seed))
	model := &Model{WindowSize: size, Weights: make([]float64, dim)}
	for i := range model.Weights {
		model.Weights[i] = rng.NormFloat64() * initScale
	}

	grad := make([]float64, dim)
	n := len(windows)
	for epoch := 1; epoch <= params.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "training interrupted at epoch %d", epoch)
		}

		order := rng.Perm(n)
		for start := 0; start < n; start += params.BatchSize {
			end := start + params.BatchSize
			if end > n {
				end = n
			}

			for i := range grad {
				grad[i] = 0
			}
			biasGrad := 0.0
			for _, idx := range order[start:end] {
				x := windows[idx].Values()
				residual := floats.Dot(model.Weights, x) + model.Bias - targets[idx]
				floats.AddScaled(grad, residual, x)
				biasGrad += residual
			}

			step := -params.LearningRate * 2 / float64(end-start)
			floats.AddScaled(model.Weights, step, grad)
			model.Bias += step * biasGrad
		}

		model.Loss = meanSquaredError(model, windows, targets)
		if math.IsNaN(model.Loss) || math.IsInf(model.Loss, 0) {
			return nil, errors.Wrapf(errors.ErrPredictorFailure,
				"training diverged at epoch %d (learning rate %g)", epoch, params.LearningRate)
		}
		t.log.Debugw("Epoch complete", "epoch", epoch, "epochs", params.Epochs, "loss", model.Loss)
	}

	t.log.Infow("Training complete",
		"samples", n,
		"window_size", size,
		"epochs", params.Epochs,
		"loss", model.Loss,
	)

	return model, nil
}

func meanSquaredError(m *Model, windows []window.Window, targets []float64) float64 {
	sum := 0.0
	for i, w := range windows {
		r := floats.Dot(m.Weights, w.Values()) + m.Bias - targets[i]
		sum += r * r
	}
	return sum / float64(len(windows))
}

// TrainingLoss returns the MSE recorded after the last training epoch
func (m *Model) TrainingLoss() float64 {
	return m.Loss
}
