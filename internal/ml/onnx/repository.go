package onnx

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"candlecast/internal/ml/predictor"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Compile-time check
var _ predictor.Repository = (*Repository)(nil)

// Repository resolves model identifiers to <dir>/<id>.onnx
type Repository struct {
	dir  string
	opts Options
	log  *logger.Logger
}

// NewRepository creates a repository reading models from dir
func NewRepository(dir string, opts Options) *Repository {
	return &Repository{
		dir:  dir,
		opts: opts,
		log:  logger.Get().With("component", "onnx_repository"),
	}
}

// Path returns the model file for id
func (r *Repository) Path(id string) string {
	return filepath.Join(r.dir, filepath.Base(id)+".onnx")
}

// Load returns NotFound when the model file does not exist
func (r *Repository) Load(ctx context.Context, id string) (predictor.Lookup, error) {
	if err := ctx.Err(); err != nil {
		return predictor.NotFound(), err
	}

	path := r.Path(id)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return predictor.NotFound(), nil
	}
	if err != nil {
		return predictor.NotFound(), errors.Wrapf(err, "stat model %s", path)
	}

	model, err := LoadModel(path, r.opts)
	if err != nil {
		return predictor.NotFound(), errors.Wrapf(err, "load model %s", id)
	}

	r.log.Infow("Model loaded", "model_id", id, "path", path, "size", humanize.Bytes(uint64(info.Size())))
	return predictor.Found(model), nil
}

// Save is not supported: ONNX models are exported by the offline training toolchain
func (r *Repository) Save(ctx context.Context, id string, model predictor.Model) error {
	return errors.Wrapf(errors.ErrUnsupported, "onnx backend cannot persist model %s", id)
}
