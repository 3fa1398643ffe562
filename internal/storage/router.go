package storage

import (
	"context"
	"io"
)

// BucketRouter sends avatars/... objects to the avatar bucket and everything
// else to the documents bucket.
type BucketRouter struct {
	Documents Store
	Avatars   Store
}

func (b *BucketRouter) pick(objectName string) Store {
	if Folder(objectName) == FolderAvatars && b.Avatars != nil {
		return b.Avatars
	}
	return b.Documents
}

func (b *BucketRouter) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	return b.pick(objectName).Upload(ctx, objectName, contentType, r)
}

func (b *BucketRouter) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return b.pick(objectName).Download(ctx, objectName)
}
