package forecast

import (
	"time"

	"candlecast/pkg/errors"
)

// Column identifies one of the three model input features
type Column int

const (
	ColumnClose Column = iota
	ColumnSMA
	ColumnRSI
)

// Columns lists the features in model input order
var Columns = []Column{ColumnClose, ColumnSMA, ColumnRSI}

// FeatureCount is the width of one model input row
const FeatureCount = 3

func (c Column) String() string {
	switch c {
	case ColumnClose:
		return "close"
	case ColumnSMA:
		return "sma"
	case ColumnRSI:
		return "rsi"
	default:
		return "unknown"
	}
}

// FeatureRow holds the model inputs for one time index
type FeatureRow struct {
	Close float64
	SMA   float64
	RSI   float64
}

// Get returns the value of one column
func (r FeatureRow) Get(c Column) float64 {
	switch c {
	case ColumnSMA:
		return r.SMA
	case ColumnRSI:
		return r.RSI
	default:
		return r.Close
	}
}

func (r *FeatureRow) set(c Column, v float64) {
	switch c {
	case ColumnSMA:
		r.SMA = v
	case ColumnRSI:
		r.RSI = v
	default:
		r.Close = v
	}
}

// Frame is the feature table a forecasting run owns: history first, then
// one synthetic row per forecast step. All values are in the scaled domain
// once the frame has been rescaled.
type Frame struct {
	rows []FeatureRow
}

// NewFrame builds a frame from equally sized feature columns
func NewFrame(closes, sma, rsi []float64) (*Frame, error) {
	if len(sma) != len(closes) || len(rsi) != len(closes) {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"column lengths differ: close=%d sma=%d rsi=%d", len(closes), len(sma), len(rsi))
	}

	rows := make([]FeatureRow, len(closes))
	for i := range closes {
		rows[i] = FeatureRow{Close: closes[i], SMA: sma[i], RSI: rsi[i]}
	}
	return &Frame{rows: rows}, nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.rows)
}

// Rows exposes the rows for read-only use (window slicing)
func (f *Frame) Rows() []FeatureRow {
	return f.rows
}

// Row returns the row at index i
func (f *Frame) Row(i int) FeatureRow {
	return f.rows[i]
}

// Append adds a row to the end of the frame
func (f *Frame) Append(row FeatureRow) {
	f.rows = append(f.rows, row)
}

// Set overwrites one cell
func (f *Frame) Set(i int, c Column, v float64) {
	f.rows[i].set(c, v)
}

// Column copies one feature column out of the frame
func (f *Frame) Column(c Column) []float64 {
	out := make([]float64, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Get(c)
	}
	return out
}

// SetColumn replaces one feature column. values must have Len() entries.
func (f *Frame) SetColumn(c Column, values []float64) error {
	if len(values) != len(f.rows) {
		return errors.Wrapf(errors.ErrInvalidInput,
			"column %s has %d values, frame has %d rows", c, len(values), len(f.rows))
	}
	for i, v := range values {
		f.rows[i].set(c, v)
	}
	return nil
}

// Clone returns an independent copy
func (f *Frame) Clone() *Frame {
	rows := make([]FeatureRow, len(f.rows))
	copy(rows, f.rows)
	return &Frame{rows: rows}
}

// Run describes one completed forecasting run
type Run struct {
	RunID         string    `ch:"run_id" json:"run_id"`
	ModelID       string    `ch:"model_id" json:"model_id"`
	Exchange      string    `ch:"exchange" json:"exchange"`
	Symbol        string    `ch:"symbol" json:"symbol"`
	Timeframe     string    `ch:"timeframe" json:"timeframe"`
	WindowSize    uint32    `ch:"window_size" json:"window_size"`
	BarsToPredict uint32    `ch:"bars_to_predict" json:"bars_to_predict"`
	HistoryLength uint32    `ch:"history_length" json:"history_length"`
	Trained       bool      `ch:"trained" json:"trained"` // model was trained in this run rather than loaded
	CreatedAt     time.Time `ch:"created_at" json:"created_at"`
}

// Point is a single forecast step
type Point struct {
	RunID           string    `ch:"run_id" json:"run_id"`
	Step            uint32    `ch:"step" json:"step"`
	OpenTime        time.Time `ch:"open_time" json:"open_time"` // projected candle open time
	PredictedScaled float64   `ch:"predicted_scaled" json:"predicted_scaled"`
	PredictedPrice  float64   `ch:"predicted_price" json:"predicted_price"`
}
