package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads blobs to a bucket. Returned paths are publicBase/key, or
// s3://bucket/key when no public base is configured.
type S3Store struct {
	client     S3API
	bucket     string
	publicBase string
}

func NewS3Store(client S3API, bucket, publicBase string) *S3Store {
	return &S3Store{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	// Signing needs a seekable body; uploads are small enough to buffer.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read blob failed: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object failed: %w", err)
	}

	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	return "s3://" + s.bucket + "/" + key, nil
}
