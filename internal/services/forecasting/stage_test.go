package forecasting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/pkg/errors"
)

func TestLifecycle(t *testing.T) {
	paths := [][]Stage{
		{StageModelReady, StageForecasting, StageDone},
		{StageModelTraining, StageForecasting, StageDone},
	}
	for _, path := range paths {
		var l Lifecycle
		for _, s := range path {
			require.NoError(t, l.Advance(s), "advance to %s", s)
			assert.Equal(t, s, l.Stage())
		}
	}
}

func TestLifecycle_Illegal(t *testing.T) {
	tests := []struct {
		name string
		from []Stage
		to   Stage
	}{
		{"skip model", nil, StageForecasting},
		{"ready then train", []Stage{StageModelReady}, StageModelTraining},
		{"re-enter forecasting", []Stage{StageModelReady, StageForecasting}, StageForecasting},
		{"restart after done", []Stage{StageModelReady, StageForecasting, StageDone}, StageModelReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Lifecycle
			for _, s := range tt.from {
				require.NoError(t, l.Advance(s))
			}
			err := l.Advance(tt.to)
			assert.True(t, errors.Is(err, errors.ErrInternal))
		})
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "model_training", StageModelTraining.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
