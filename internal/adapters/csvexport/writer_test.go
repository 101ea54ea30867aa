package csvexport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/domain/forecast"
)

func samplePoints() []forecast.Point {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []forecast.Point{
		{RunID: "r1", Step: 1, OpenTime: open, PredictedScaled: 0.5, PredictedPrice: 42000.25},
		{RunID: "r1", Step: 2, OpenTime: open.Add(time.Hour), PredictedScaled: 0.75, PredictedPrice: 43000},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, samplePoints()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "run_id,step,open_time,predicted_scaled,predicted_price", lines[0])
	assert.Equal(t, "r1,1,2024-01-01T00:00:00Z,0.5,42000.25", lines[1])
	assert.Equal(t, "r1,2,2024-01-01T01:00:00Z,0.75,43000", lines[2])
}

func TestWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "forecast.csv")
	w := NewWriter(path)
	assert.Equal(t, "csv", w.Name())

	require.NoError(t, w.Write(context.Background(), forecast.Run{RunID: "r1"}, samplePoints()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "r1,2,")

	// second write replaces the file
	require.NoError(t, w.Write(context.Background(), forecast.Run{RunID: "r1"}, samplePoints()[:1]))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}
