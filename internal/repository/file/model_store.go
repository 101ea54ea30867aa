// Package file stores model artifacts on the local filesystem.
package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"candlecast/internal/ml/predictor"
	"candlecast/pkg/errors"
)

// Compile-time check
var _ predictor.ArtifactStore = (*ModelStore)(nil)

// ModelStore keeps one file per model identifier under a directory
type ModelStore struct {
	dir string
	ext string
}

// NewModelStore creates a store rooted at dir. ext is appended to identifiers (".json").
func NewModelStore(dir, ext string) *ModelStore {
	return &ModelStore{dir: dir, ext: ext}
}

// Path returns the file that holds the artifact for id
func (s *ModelStore) Path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errors.Wrapf(errors.ErrInvalidInput, "invalid model id %q", id)
	}
	return filepath.Join(s.dir, id+s.ext), nil
}

// Get reads the artifact for id
func (s *ModelStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(errors.ErrNotFound, "model artifact not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model artifact %s", path)
	}
	return data, nil
}

// Put writes the artifact for id. The file is written to a temporary name
// and renamed so readers never observe a partial artifact.
func (s *ModelStore) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create model dir %s", s.dir)
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp artifact")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp artifact")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move artifact into %s", path)
	}
	return nil
}
