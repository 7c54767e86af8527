package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSClient stores objects in a Google Cloud Storage bucket.
type GCSClient struct {
	client     *gcs.Client
	bucketName string
	projectID  string
}

// NewGCSClient uses the credentials file when given, application default credentials otherwise.
func NewGCSClient(ctx context.Context, bucketName, projectID, credentialsPath string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
		projectID:  projectID,
	}, nil
}

func (g *GCSClient) bucket() *gcs.BucketHandle {
	return g.client.Bucket(g.bucketName)
}

// UploadFile uploads a file to the bucket
func (g *GCSClient) UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error) {
	w := g.bucket().Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	size, err := io.Copy(w, reader)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload of %s: %w", objectName, err)
	}

	return &UploadResult{
		ObjectName: objectName,
		PublicURL:  fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, objectName),
		Size:       size,
	}, nil
}

// DeleteFile deletes an object from the bucket
func (g *GCSClient) DeleteFile(ctx context.Context, objectName string) error {
	err := g.bucket().Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}

// ReadFile streams an object from the bucket
func (g *GCSClient) ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := g.bucket().Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return r, nil
}

// GetSignedURL issues a V4 GET URL. Signing uses the client's credentials.
func (g *GCSClient) GetSignedURL(objectName string, expiry time.Duration) (string, error) {
	url, err := g.bucket().SignedURL(objectName, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", objectName, err)
	}
	return url, nil
}

// Close closes the GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

var _ StorageClient = (*GCSClient)(nil)
