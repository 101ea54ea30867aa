// Package onnx runs exported sequence models (for example the Conv1D+LSTM
// forecaster) through ONNX Runtime. Models are trained offline, so this
// backend loads but never trains or saves.
package onnx

import (
	"math"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/ml/predictor"
	"candlecast/internal/ml/window"
	"candlecast/pkg/errors"
)

// Compile-time checks
var (
	_ predictor.Model  = (*Model)(nil)
	_ predictor.Closer = (*Model)(nil)
)

// Options configures tensor names and the runtime library
type Options struct {
	InputName   string // defaults to "input"
	OutputName  string // defaults to "output"
	LibraryPath string // onnxruntime shared library; empty uses the platform default
	WindowSize  int
}

// Model wraps an ONNX Runtime session taking [1, window, 3] float32 and
// returning [1, 1] float32
type Model struct {
	session    *onnxruntime.DynamicAdvancedSession
	windowSize int
}

// LoadModel loads an ONNX model from file
func LoadModel(modelPath string, opts Options) (*Model, error) {
	if opts.InputName == "" {
		opts.InputName = "input"
	}
	if opts.OutputName == "" {
		opts.OutputName = "output"
	}

	// The runtime environment is process-wide and initialized once
	if !onnxruntime.IsInitialized() {
		if opts.LibraryPath != "" {
			onnxruntime.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
		}
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{opts.InputName}, []string{opts.OutputName}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &Model{session: session, windowSize: opts.WindowSize}, nil
}

// Predict runs one inference step
func (m *Model) Predict(w window.Window) (float64, error) {
	if m.session == nil {
		return 0, errors.Wrap(errors.ErrPredictorFailure, "model session is closed")
	}
	if m.windowSize > 0 && w.Size() != m.windowSize {
		return 0, errors.Wrapf(errors.ErrPredictorFailure,
			"window has %d rows, model expects %d", w.Size(), m.windowSize)
	}

	inputShape := onnxruntime.NewShape(1, int64(w.Size()), forecast.FeatureCount)
	inputTensor, err := onnxruntime.NewTensor(inputShape, w.Float32())
	if err != nil {
		return 0, errors.Wrapf(errors.ErrPredictorFailure, "failed to create input tensor: %v", err)
	}
	defer inputTensor.Destroy()

	output := make([]float32, 1)
	outputTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, 1), output)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrPredictorFailure, "failed to create output tensor: %v", err)
	}
	defer outputTensor.Destroy()

	err = m.session.Run([]onnxruntime.Value{inputTensor}, []onnxruntime.Value{outputTensor})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrPredictorFailure, "inference failed: %v", err)
	}

	y := float64(outputTensor.GetData()[0])
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, errors.Wrap(errors.ErrPredictorFailure, "model produced a non-finite value")
	}
	return y, nil
}

// Close releases the ONNX session. Safe to call more than once.
func (m *Model) Close() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
