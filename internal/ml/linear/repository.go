package linear

import (
	"context"
	"encoding/json"

	"github.com/dustin/go-humanize"

	"candlecast/internal/domain/forecast"
	"candlecast/internal/ml/predictor"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Compile-time check
var _ predictor.Repository = (*Repository)(nil)

// artifactVersion guards against decoding artifacts written by an incompatible layout
const artifactVersion = 1

type artifact struct {
	Version int    `json:"version"`
	Model   *Model `json:"model"`
}

// Repository persists linear models as JSON in an artifact store
type Repository struct {
	store predictor.ArtifactStore
	log   *logger.Logger
}

// NewRepository creates a repository over store
func NewRepository(store predictor.ArtifactStore) *Repository {
	return &Repository{
		store: store,
		log:   logger.Get().With("component", "linear_repository"),
	}
}

// Load decodes the model stored under id
func (r *Repository) Load(ctx context.Context, id string) (predictor.Lookup, error) {
	data, err := r.store.Get(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		return predictor.NotFound(), nil
	}
	if err != nil {
		return predictor.NotFound(), errors.Wrapf(err, "load model %s", id)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return predictor.NotFound(), errors.Wrapf(err, "decode model %s", id)
	}
	if a.Version != artifactVersion || a.Model == nil {
		return predictor.NotFound(), errors.Wrapf(errors.ErrInvalidInput,
			"model %s has unsupported artifact version %d", id, a.Version)
	}
	if len(a.Model.Weights) != a.Model.WindowSize*forecast.FeatureCount {
		return predictor.NotFound(), errors.Wrapf(errors.ErrInvalidInput,
			"model %s has %d weights for window size %d", id, len(a.Model.Weights), a.Model.WindowSize)
	}

	r.log.Infow("Model loaded", "model_id", id, "size", humanize.Bytes(uint64(len(data))), "window_size", a.Model.WindowSize)
	return predictor.Found(a.Model), nil
}

// Save encodes and stores model under id. Only *Model values are accepted.
func (r *Repository) Save(ctx context.Context, id string, model predictor.Model) error {
	m, ok := model.(*Model)
	if !ok {
		return errors.Wrapf(errors.ErrUnsupported, "linear repository cannot persist %T", model)
	}

	data, err := json.Marshal(artifact{Version: artifactVersion, Model: m})
	if err != nil {
		return errors.Wrapf(err, "encode model %s", id)
	}
	if err := r.store.Put(ctx, id, data); err != nil {
		return errors.Wrapf(err, "store model %s", id)
	}

	r.log.Infow("Model saved", "model_id", id, "size", humanize.Bytes(uint64(len(data))))
	return nil
}
