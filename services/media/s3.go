package mediasvc

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/media"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores files in an S3 compatible bucket.
type S3Storage struct {
	client  s3API
	bucket  string
	baseURL string
}

var _ media.Storage = (*S3Storage)(nil)

// NewS3Storage builds the client from the media config; static keys win over the default AWS chain
// and a custom endpoint switches to path-style addressing.
func NewS3Storage(ctx context.Context, conf core.MediaConfig) (*S3Storage, error) {
	if conf.S3Bucket == "" {
		return nil, errors.New("media.s3Bucket is required by the s3 backend")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if conf.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(conf.S3Region))
	}
	if conf.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.S3AccessKey, conf.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if conf.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Storage(client, conf), nil
}

func newS3Storage(client s3API, conf core.MediaConfig) *S3Storage {
	baseURL := strings.TrimSuffix(conf.PublicBaseURL, "/")
	if baseURL == "" {
		if conf.S3Endpoint != "" {
			baseURL = strings.TrimSuffix(conf.S3Endpoint, "/") + "/" + conf.S3Bucket
		} else {
			baseURL = "https://" + conf.S3Bucket + ".s3." + conf.S3Region + ".amazonaws.com"
		}
	}
	return &S3Storage{client: client, bucket: conf.S3Bucket, baseURL: baseURL}
}

func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	// uploads are size capped: buffering gives the SDK a seekable body to sign
	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", errors.Wrap(err, "s3 put object")
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return core.ErrNotFound
	}
	return errors.Wrap(err, "s3 delete object")
}
