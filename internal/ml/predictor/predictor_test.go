package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"candlecast/internal/ml/window"
)

type constModel struct{ closed bool }

func (m *constModel) Predict(window.Window) (float64, error) { return 1, nil }
func (m *constModel) Close()                                 { m.closed = true }

func TestLookup(t *testing.T) {
	m, ok := NotFound().Model()
	assert.False(t, ok)
	assert.Nil(t, m)

	model := &constModel{}
	got, ok := Found(model).Model()
	assert.True(t, ok)
	assert.Same(t, model, got)
}

func TestRelease(t *testing.T) {
	model := &constModel{}
	Release(model)
	assert.True(t, model.closed)
}
