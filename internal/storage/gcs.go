package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/yoockh/recruitlink/internal/utils"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
	// ownsClient is false for stores sharing a client from NewGCSStores.
	ownsClient bool
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket, ownsClient: true}, nil
}

// NewGCSStores opens one client for the documents and avatars buckets.
func NewGCSStores(ctx context.Context, documents, avatars string) (*GCSStore, *GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &GCSStore{client: c, bucket: documents, ownsClient: true}, &GCSStore{client: c, bucket: avatars}, nil
}

func (s *GCSStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func (s *GCSStore) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	// public read so the frontend can open the file directly
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", err
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectName), nil
}

func (s *GCSStore) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
