package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Archive keeps a copy of confirmed product images in S3-compatible storage
type S3Archive struct {
	s3Client s3iface.S3API
	bucket   string
	endpoint string
}

// Config holds configuration for the S3 archive
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Region          string
}

// Enabled reports whether enough configuration is present to build an archive
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// NewS3Archive creates a new S3 archive
func NewS3Archive(config *Config) (*S3Archive, error) {
	if config.Endpoint == "" || config.AccessKeyID == "" || config.AccessKeySecret == "" {
		return nil, fmt.Errorf("S3 configuration is incomplete")
	}

	if config.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}

	region := config.Region
	if region == "" {
		region = "us-east-1"
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(config.Endpoint),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3ArchiveWithClient(s3.New(sess), config.Bucket, config.Endpoint), nil
}

// NewS3ArchiveWithClient wraps an existing client
func NewS3ArchiveWithClient(client s3iface.S3API, bucket, endpoint string) *S3Archive {
	return &S3Archive{
		s3Client: client,
		bucket:   bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// Put uploads an image under key
func (a *S3Archive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Delete removes the object under key. Deleting a missing key succeeds.
func (a *S3Archive) Delete(ctx context.Context, key string) error {
	_, err := a.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// URL returns the path-style location of key
func (a *S3Archive) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, key)
}
