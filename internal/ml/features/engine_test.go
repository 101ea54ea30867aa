package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/pkg/errors"
)

func TestEngine_SMA_Sequence(t *testing.T) {
	e, err := NewEngine(3)
	require.NoError(t, err)

	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	sma, err := e.SMA(closes)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 2, 2, 3, 4, 5, 6, 7, 8, 9}, sma)
}

func TestEngine_SMA_MatchesArithmeticMean(t *testing.T) {
	e, err := NewEngine(5)
	require.NoError(t, err)

	closes := []float64{10, 12, 9, 15, 20, 18, 11, 13, 17, 16, 14, 19}
	sma, err := e.SMA(closes)
	require.NoError(t, err)

	for i := 4; i < len(closes); i++ {
		want := (closes[i-4] + closes[i-3] + closes[i-2] + closes[i-1] + closes[i]) / 5
		assert.Equal(t, want, sma[i], "index %d", i)

		direct, err := e.SMAAt(closes, i)
		require.NoError(t, err)
		assert.Equal(t, want, direct, "index %d", i)
	}
}

func TestEngine_SMAAt_Bounds(t *testing.T) {
	e, err := NewEngine(3)
	require.NoError(t, err)

	_, err = e.SMAAt([]float64{1, 2, 3}, 1)
	assert.True(t, errors.Is(err, errors.ErrInsufficientHistory))

	_, err = e.SMAAt([]float64{1, 2, 3}, 3)
	assert.True(t, errors.Is(err, errors.ErrInsufficientHistory))
}

func TestEngine_RSI(t *testing.T) {
	e, err := NewEngine(3)
	require.NoError(t, err)

	// deltas: 0, +2, -1, +1, -2
	closes := []float64{10, 12, 11, 12, 10}
	rsi, err := e.RSI(closes)
	require.NoError(t, err)

	// index 2: gains {0,2,0} losses {0,0,1} -> RS = 2 -> 66.67
	// index 3: gains {2,0,1} losses {0,1,0} -> RS = 3 -> 75
	// index 4: gains {0,1,0} losses {1,0,2} -> RS = 1/3 -> 25
	assert.InDelta(t, 200.0/3, rsi[2], 1e-9)
	assert.InDelta(t, 75, rsi[3], 1e-9)
	assert.InDelta(t, 25, rsi[4], 1e-9)
	assert.Equal(t, rsi[2], rsi[0], "warm-up back-filled")
	assert.Equal(t, rsi[2], rsi[1], "warm-up back-filled")
}

func TestEngine_RSI_ZeroLoss(t *testing.T) {
	e, err := NewEngine(4)
	require.NoError(t, err)

	rising, err := e.RSI([]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	for _, v := range rising {
		assert.Equal(t, RSIAllGains, v)
	}

	flat, err := e.RSI([]float64{7, 7, 7, 7, 7})
	require.NoError(t, err)
	for _, v := range flat {
		assert.Equal(t, RSIFlat, v)
	}
}

func TestEngine_Compute_NoNaN(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, w := range []int{2, 3, 14, 60} {
		e, err := NewEngine(w)
		require.NoError(t, err)

		for _, n := range []int{w, w + 1, 3 * w} {
			closes := make([]float64, n)
			price := 100.0
			for i := range closes {
				// mix flat stretches with random moves
				if rng.Intn(3) > 0 {
					price += rng.NormFloat64()
				}
				closes[i] = price
			}

			sma, rsi, err := e.Compute(closes)
			require.NoError(t, err)
			require.Len(t, sma, n)
			require.Len(t, rsi, n)

			for i := 0; i < n; i++ {
				assert.False(t, math.IsNaN(sma[i]) || math.IsInf(sma[i], 0), "sma[%d] w=%d n=%d", i, w, n)
				assert.False(t, math.IsNaN(rsi[i]) || math.IsInf(rsi[i], 0), "rsi[%d] w=%d n=%d", i, w, n)
				assert.GreaterOrEqual(t, rsi[i], 0.0)
				assert.LessOrEqual(t, rsi[i], 100.0)
			}
		}
	}
}

func TestEngine_Compute_Idempotent(t *testing.T) {
	e, err := NewEngine(4)
	require.NoError(t, err)

	closes := []float64{5, 3, 8, 6, 9, 9, 4, 7}
	snapshot := append([]float64(nil), closes...)

	sma1, rsi1, err := e.Compute(closes)
	require.NoError(t, err)
	sma2, rsi2, err := e.Compute(closes)
	require.NoError(t, err)

	assert.Equal(t, sma1, sma2)
	assert.Equal(t, rsi1, rsi2)
	assert.Equal(t, snapshot, closes, "input must not be modified")
}

func TestEngine_InsufficientHistory(t *testing.T) {
	e, err := NewEngine(5)
	require.NoError(t, err)

	_, _, err = e.Compute([]float64{1, 2, 3, 4})
	assert.True(t, errors.Is(err, errors.ErrInsufficientHistory))
}

func TestNewEngine_InvalidWindow(t *testing.T) {
	_, err := NewEngine(1)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
