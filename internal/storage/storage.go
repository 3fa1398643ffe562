package storage

import (
	"context"
	"io"
	"strings"
)

type Uploader interface {
	// Upload stores the object and returns a publicly resolvable URL.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (publicURL string, err error)
}

type Downloader interface {
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
}

type Store interface {
	Uploader
	Downloader
}

const (
	FolderCV      = "cv"
	FolderAvatars = "avatars"
)

// Folder returns the first path segment of objectName.
func Folder(objectName string) string {
	f, _, _ := strings.Cut(strings.TrimPrefix(objectName, "/"), "/")
	return f
}
