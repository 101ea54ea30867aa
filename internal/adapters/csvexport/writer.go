package csvexport

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
)

var header = []string{"run_id", "step", "open_time", "predicted_scaled", "predicted_price"}

// Writer dumps forecast points to a CSV file, one row per step
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "csv" }

// Write replaces the file at the configured path
func (w *Writer) Write(ctx context.Context, run forecast.Run, points []forecast.Point) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return errors.Wrapf(err, "create %s", w.path)
	}
	defer f.Close()

	if err := Encode(f, points); err != nil {
		return err
	}
	return f.Close()
}

// Encode writes the header and one record per point
func Encode(out io.Writer, points []forecast.Point) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, p := range points {
		record := []string{
			p.RunID,
			strconv.FormatUint(uint64(p.Step), 10),
			p.OpenTime.UTC().Format(time.RFC3339),
			formatF(p.PredictedScaled),
			formatF(p.PredictedPrice),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write csv step %d", p.Step)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
