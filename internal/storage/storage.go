package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// StorageClient is implemented by the local filesystem and GCS backends.
type StorageClient interface {
	UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error)
	DeleteFile(ctx context.Context, objectName string) error
	ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error)
	GetSignedURL(objectName string, expiry time.Duration) (string, error)
	Close() error
}

type UploadResult struct {
	ObjectName string `json:"object_name"`
	PublicURL  string `json:"public_url"`
	Size       int64  `json:"size"`
}

// ObjectName builds a collision free key such as
// "property/<id>/photo/<uuid>-front-view.jpg".
func ObjectName(ownerType, ownerID, group, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s%s", ownerType, ownerID, group, uuid.New().String()[:8], base, ext)
}
