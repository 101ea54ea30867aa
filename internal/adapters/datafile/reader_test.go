package datafile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/domain/market_data"
	"candlecast/pkg/errors"
)

const sample = `1700000120000 102 103 101 102.5 10 1025
1700000060000 101 102 100 101.5 11 1116.5

1700000000000 100 101 99 100.5 12 1206
`

func TestParse(t *testing.T) {
	candles, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, candles, 3)

	first := candles[0]
	assert.Equal(t, time.UnixMilli(1700000120000).UTC(), first.OpenTime)
	assert.Equal(t, 102.0, first.Open)
	assert.Equal(t, 103.0, first.High)
	assert.Equal(t, 101.0, first.Low)
	assert.Equal(t, 102.5, first.Close)
	assert.Equal(t, 10.0, first.Volume)
	assert.Equal(t, 1025.0, first.Turnover)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"not numbers", "abc def", "line 1"},
		{"too few columns", "1 2 3 4 5 6", "line 1"},
		{"too many columns", "1 2 3 4 5 6 7 8", "line 1"},
		{"bad value on second line", "1700000000000 1 2 3 4 5 6\n1700000060000 1 2 x 4 5 6", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, candles)
			assert.True(t, errors.Is(err, errors.ErrDataFormat))
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestRepository_LoadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	repo := NewRepository(path)
	series, err := repo.LoadSeries(context.Background(), market_data.OHLCVQuery{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, []float64{100.5, 101.5, 102.5}, series.Closes())
	assert.Equal(t, "BTCUSDT", series[0].Symbol)
	assert.NoError(t, series.Validate())
}

func TestRepository_Limit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	candles, err := NewRepository(path).GetOHLCV(context.Background(), market_data.OHLCVQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 102.5, candles[0].Close)
}

func TestRepository_MissingFile(t *testing.T) {
	_, err := NewRepository(filepath.Join(t.TempDir(), "absent.txt")).
		LoadSeries(context.Background(), market_data.OHLCVQuery{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrDataFormat))
}
