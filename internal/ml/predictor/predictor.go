// Package predictor defines the capability interfaces the forecasting loop
// needs from a sequence model. Architecture and training procedure stay
// behind these interfaces.
package predictor

import (
	"context"

	"candlecast/internal/ml/window"
)

// Model predicts the next scaled close from one window.
// A model is never mutated by Predict.
type Model interface {
	Predict(w window.Window) (float64, error)
}

// TrainParams controls a training run. Seed makes training deterministic.
type TrainParams struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

// Trainer fits a new model on windows and their targets
type Trainer interface {
	Train(ctx context.Context, windows []window.Window, targets []float64, params TrainParams) (Model, error)
}

// Repository loads and persists models by identifier.
//
// Concurrent Save calls for the same identifier are not synchronized;
// callers running several forecasts at once must use distinct identifiers.
type Repository interface {
	// Load returns NotFound() rather than an error when no model exists
	Load(ctx context.Context, id string) (Lookup, error)
	Save(ctx context.Context, id string, model Model) error
}

// Lookup is the outcome of Repository.Load: either a found model or absence
type Lookup struct {
	model Model
}

// Found wraps a loaded model
func Found(m Model) Lookup {
	return Lookup{model: m}
}

// NotFound reports that no model exists under the requested identifier
func NotFound() Lookup {
	return Lookup{}
}

// Model returns the model and whether one was found
func (l Lookup) Model() (Model, bool) {
	return l.model, l.model != nil
}

// Closer is implemented by models holding native resources
type Closer interface {
	Close()
}

// Release frees native resources of m if it holds any
func Release(m Model) {
	if c, ok := m.(Closer); ok {
		c.Close()
	}
}
