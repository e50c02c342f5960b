package mediasvc

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/vitrine/core"
)

type fakeS3 struct {
	objects map[string]string
	ctypes  map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	f.ctypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if _, ok := f.objects[k]; !ok {
		return nil, &types.NoSuchKey{}
	}
	delete(f.objects, k)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string]string{}, ctypes: map[string]string{}}

	tests := []struct {
		name    string
		conf    core.MediaConfig
		wantURL string
	}{
		{
			name:    "aws",
			conf:    core.MediaConfig{S3Bucket: "site", S3Region: "eu-west-1"},
			wantURL: "https://site.s3.eu-west-1.amazonaws.com/2024/05/a.jpg",
		},
		{
			name:    "custom endpoint",
			conf:    core.MediaConfig{S3Bucket: "site", S3Endpoint: "http://minio:9000/"},
			wantURL: "http://minio:9000/site/2024/05/a.jpg",
		},
		{
			name:    "cdn",
			conf:    core.MediaConfig{S3Bucket: "site", PublicBaseURL: "https://cdn.example.com"},
			wantURL: "https://cdn.example.com/2024/05/a.jpg",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newS3Storage(fake, tc.conf)
			url, err := store.Put(ctx, "2024/05/a.jpg", strings.NewReader("jpg"), 3, "image/jpeg")
			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, url)
			assert.Equal(t, "jpg", fake.objects["site/2024/05/a.jpg"])
			assert.Equal(t, "image/jpeg", fake.ctypes["2024/05/a.jpg"])

			require.NoError(t, store.Delete(ctx, "2024/05/a.jpg"))
			assert.True(t, core.IsNotFound(store.Delete(ctx, "2024/05/a.jpg")))
		})
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), core.MediaConfig{})
	assert.Error(t, err)
}
