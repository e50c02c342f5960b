package mediasvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/media"
)

// LocalStorage writes files under a directory served by the API at /media.
type LocalStorage struct {
	dir     string
	baseURL string
}

var _ media.Storage = (*LocalStorage)(nil)

func NewLocalStorage(conf core.MediaConfig) (*LocalStorage, error) {
	dir, err := filepath.Abs(conf.LocalDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving media dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimSuffix(conf.PublicBaseURL, "/")}, nil
}

// Dir is the root directory of the stored files.
func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) path(key string) (string, error) {
	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(fp, s.dir+string(filepath.Separator)) {
		return "", core.NewFieldError("key", errors.Errorf("invalid media key %q", key))
	}
	return fp, nil
}

func (s *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media subdir")
	}

	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing media file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "closing media file")
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return core.ErrNotFound
		}
		return errors.Wrap(err, "removing media file")
	}
	return nil
}
