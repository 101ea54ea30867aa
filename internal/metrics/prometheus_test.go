package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/pkg/errors"
)

func TestRecordStage(t *testing.T) {
	before := testutil.ToFloat64(StageExecutions.WithLabelValues("features", "error"))
	RecordStage("features", time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(StageExecutions.WithLabelValues("features", "error"))

	assert.Equal(t, before+1, after)
}

func TestRecordForecastStep(t *testing.T) {
	before := testutil.ToFloat64(ForecastSteps)
	RecordForecastStep(time.Microsecond, 123)

	assert.Equal(t, before+1, testutil.ToFloat64(ForecastSteps))
	assert.Equal(t, 123.0, testutil.ToFloat64(FrameRows))
}

func TestPush(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	RecordSinkWrite("csv", nil)
	require.NoError(t, Push(context.Background(), server.URL, "candlecast"))
	assert.Equal(t, "/metrics/job/candlecast", gotPath)
}
