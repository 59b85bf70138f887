package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	puts    map[string][]byte
	types   map[string]string
	deletes []string
	err     error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts[aws.StringValue(in.Key)] = body
	f.types[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newFakeS3() *fakeS3 {
	return &fakeS3{puts: map[string][]byte{}, types: map[string]string{}}
}

func TestS3Archive_PutAndDelete(t *testing.T) {
	client := newFakeS3()
	archive := NewS3ArchiveWithClient(client, "labels", "https://s3.local/")

	require.NoError(t, archive.Put(context.Background(), "products/1.png", []byte("png"), "image/png"))
	assert.Equal(t, []byte("png"), client.puts["products/1.png"])
	assert.Equal(t, "image/png", client.types["products/1.png"])

	require.NoError(t, archive.Delete(context.Background(), "products/1.png"))
	assert.Equal(t, []string{"products/1.png"}, client.deletes)

	assert.Equal(t, "https://s3.local/labels/products/1.png", archive.URL("products/1.png"))
}

func TestS3Archive_PutError(t *testing.T) {
	client := newFakeS3()
	client.err = errors.New("boom")
	archive := NewS3ArchiveWithClient(client, "labels", "https://s3.local")

	err := archive.Put(context.Background(), "k", []byte("x"), "")
	assert.ErrorContains(t, err, "failed to upload to S3")
}

func TestNewS3Archive_IncompleteConfig(t *testing.T) {
	_, err := NewS3Archive(&Config{Endpoint: "https://s3.local"})
	assert.Error(t, err)

	_, err = NewS3Archive(&Config{Endpoint: "https://s3.local", AccessKeyID: "a", AccessKeySecret: "b"})
	assert.ErrorContains(t, err, "bucket")

	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Endpoint: "e", AccessKeyID: "a", AccessKeySecret: "b", Bucket: "c"}.Enabled())
}
