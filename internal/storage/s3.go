package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/yoockh/recruitlink/internal/utils"
)

type S3Store struct {
	client *s3.Client
	bucket string
	// publicBase overrides the virtual-hosted URL (CDN, MinIO, ...)
	publicBase string
	region     string
}

// NewS3Client loads the default AWS configuration chain.
func NewS3Client(ctx context.Context) (*s3.Client, string, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), cfg.Region, nil
}

func NewS3Store(client *s3.Client, region, bucket, publicBase string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/"), region: region}
}

func (s *S3Store) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectName),
		ContentType: aws.String(contentType),
		Body:        r,
	})
	if err != nil {
		return "", err
	}
	return s.PublicURL(objectName), nil
}

func (s *S3Store) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) PublicURL(objectName string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + objectName
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectName)
}
