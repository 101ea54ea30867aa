package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"candlecast/internal/ml/predictor"
	"candlecast/pkg/errors"
)

// Compile-time check
var _ predictor.ArtifactStore = (*ModelStore)(nil)

// ModelStore keeps serialized model artifacts in Redis
type ModelStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewModelStore creates a store. ttl of zero keeps artifacts forever.
func NewModelStore(client *redis.Client, prefix string, ttl time.Duration) *ModelStore {
	return &ModelStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the artifact stored under id
func (s *ModelStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "model artifact not found: id=%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get model artifact from redis: id=%s", id)
	}
	return data, nil
}

// Put stores the artifact under id, replacing any previous value
func (s *ModelStore) Put(ctx context.Context, id string, data []byte) error {
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save model artifact to redis: id=%s", id)
	}
	return nil
}

func (s *ModelStore) key(id string) string {
	return s.prefix + id
}
