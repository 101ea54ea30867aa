package predictor

import (
	"context"
)

// ArtifactStore keeps serialized model artifacts.
// Get returns errors.ErrNotFound when the identifier is unknown.
type ArtifactStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
}
