package linear

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/ml/predictor"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
)

// dataset builds windows whose target is the last close plus a fixed offset,
// which a linear model can fit exactly.
func dataset(t *testing.T, n, size int) ([]window.Window, []float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))

	windows := make([]window.Window, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		values := make([]float64, size*3)
		for j := range values {
			values[j] = rng.Float64()
		}
		w, err := window.New(size, values)
		require.NoError(t, err)
		windows[i] = w
		targets[i] = values[(size-1)*3] + 0.1
	}
	return windows, targets
}

func TestTrainer_ReducesLoss(t *testing.T) {
	windows, targets := dataset(t, 200, 4)
	trainer := NewTrainer()

	short, err := trainer.Train(context.Background(), windows, targets,
		predictor.TrainParams{Epochs: 1, BatchSize: 16, LearningRate: 0.05, Seed: 42})
	require.NoError(t, err)
	long, err := trainer.Train(context.Background(), windows, targets,
		predictor.TrainParams{Epochs: 200, BatchSize: 16, LearningRate: 0.05, Seed: 42})
	require.NoError(t, err)

	assert.Less(t, long.(*Model).Loss, short.(*Model).Loss)
	assert.Less(t, long.(*Model).Loss, 0.01)
}

func TestTrainer_Deterministic(t *testing.T) {
	windows, targets := dataset(t, 50, 3)
	params := predictor.TrainParams{Epochs: 5, BatchSize: 8, LearningRate: 0.01, Seed: 42}

	a, err := NewTrainer().Train(context.Background(), windows, targets, params)
	require.NoError(t, err)
	b, err := NewTrainer().Train(context.Background(), windows, targets, params)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	params.Seed = 7
	c, err := NewTrainer().Train(context.Background(), windows, targets, params)
	require.NoError(t, err)
	assert.NotEqual(t, a.(*Model).Weights, c.(*Model).Weights)
}

func TestTrainer_InvalidInput(t *testing.T) {
	windows, targets := dataset(t, 10, 3)
	params := predictor.TrainParams{Epochs: 1, BatchSize: 4, LearningRate: 0.01}
	trainer := NewTrainer()

	_, err := trainer.Train(context.Background(), nil, nil, params)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = trainer.Train(context.Background(), windows, targets[:5], params)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = trainer.Train(context.Background(), windows, targets, predictor.TrainParams{Epochs: 1, BatchSize: 0, LearningRate: 0.01})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestTrainer_Cancelled(t *testing.T) {
	windows, targets := dataset(t, 10, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainer().Train(ctx, windows, targets, predictor.TrainParams{Epochs: 3, BatchSize: 4, LearningRate: 0.01})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_Predict(t *testing.T) {
	m := &Model{WindowSize: 2, Weights: []float64{1, 0, 0, 2, 0, 0}, Bias: 0.5}

	w, err := window.New(2, []float64{0.1, 9, 9, 0.2, 9, 9})
	require.NoError(t, err)
	y, err := m.Predict(w)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, y, 1e-12)

	wrong, err := window.New(3, make([]float64, 9))
	require.NoError(t, err)
	_, err = m.Predict(wrong)
	assert.True(t, errors.Is(err, errors.ErrPredictorFailure))
}
