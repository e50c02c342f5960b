// Package mediasvc stores uploaded media on the local disk or in an S3 bucket.
package mediasvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/media"
)

// New returns the storage selected by conf.Backend.
// localDir is the directory to serve at /media; it is empty for remote backends.
func New(ctx context.Context, conf core.MediaConfig) (store media.Storage, localDir string, err error) {
	switch conf.Backend {
	case "", "local":
		local, err := NewLocalStorage(conf)
		if err != nil {
			return nil, "", err
		}
		return local, local.Dir(), nil
	case "s3":
		s3, err := NewS3Storage(ctx, conf)
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	}
	return nil, "", errors.Errorf("unknown media backend %q", conf.Backend)
}
