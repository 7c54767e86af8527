package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrInvalidPath      = errors.New("invalid file path")
	ErrInvalidSignature = errors.New("invalid or expired signature")
)

// LocalStorageClient stores objects under a base directory and hands out
// HMAC-signed URLs served by the /files route.
type LocalStorageClient struct {
	basePath  string
	baseURL   string
	secretKey string
	now       func() time.Time
}

func NewLocalStorageClient(basePath, baseURL, secretKey string) (*LocalStorageClient, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if secretKey == "" {
		secretKey = "default-local-storage-key"
	}
	if baseURL == "" {
		baseURL = "internal://storage"
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	return &LocalStorageClient{
		basePath:  absBase,
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		now:       time.Now,
	}, nil
}

// UploadFile writes a file under the base path
func (l *LocalStorageClient) UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error) {
	fullPath, err := l.pathFor(objectName)
	if err != nil {
		return nil, err
	}

	// Create directory structure if it doesn't exist
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	// Copy data from reader to file
	size, err := io.Copy(file, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to write data to file: %w", err)
	}

	return &UploadResult{
		ObjectName: objectName,
		PublicURL:  l.baseURL + "/" + objectName,
		Size:       size,
	}, nil
}

// DeleteFile removes the object; a missing object is not an error.
func (l *LocalStorageClient) DeleteFile(ctx context.Context, objectName string) error {
	fullPath, err := l.pathFor(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	l.cleanEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// cleanEmptyDirs removes empty parent directories up to basePath
func (l *LocalStorageClient) cleanEmptyDirs(dir string) {
	for dir != l.basePath && strings.HasPrefix(dir, l.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}

// ReadFile opens a stored file for reading
func (l *LocalStorageClient) ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	fullPath, err := l.pathFor(objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fullPath, err)
	}
	return file, nil
}

// GetSignedURL returns baseURL/object?expires=<unix>&signature=<hmac>.
func (l *LocalStorageClient) GetSignedURL(objectName string, expiry time.Duration) (string, error) {
	expiresAt := l.now().Add(expiry).Unix()
	signature := l.sign(fmt.Sprintf("%s:%d", objectName, expiresAt))
	return fmt.Sprintf("%s/%s?expires=%d&signature=%s", l.baseURL, objectName, expiresAt, signature), nil
}

func (l *LocalStorageClient) sign(message string) string {
	h := hmac.New(sha256.New, []byte(l.secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignedURL checks expiry and signature of a URL minted by GetSignedURL.
func (l *LocalStorageClient) VerifySignedURL(objectName string, expiresAt int64, signature string) bool {
	if l.now().Unix() > expiresAt {
		return false
	}
	expected := l.sign(fmt.Sprintf("%s:%d", objectName, expiresAt))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ResolveSigned validates a signed request and returns the file path to serve.
func (l *LocalStorageClient) ResolveSigned(objectName string, expiresAt int64, signature string) (string, error) {
	objectName = strings.TrimPrefix(objectName, "/")
	fullPath, err := l.pathFor(objectName)
	if err != nil {
		return "", err
	}
	if !l.VerifySignedURL(filepath.ToSlash(filepath.Clean(objectName)), expiresAt, signature) {
		return "", ErrInvalidSignature
	}
	return fullPath, nil
}

// pathFor maps an object name to a path inside basePath, rejecting traversal.
func (l *LocalStorageClient) pathFor(objectName string) (string, error) {
	clean := filepath.Clean(objectName)
	if objectName == "" || clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) || strings.HasPrefix(clean, "\\") {
		return "", ErrInvalidPath
	}
	fullPath := filepath.Join(l.basePath, clean)
	if !strings.HasPrefix(fullPath, l.basePath+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return fullPath, nil
}

// Close is a no-op for local storage
func (l *LocalStorageClient) Close() error {
	return nil
}

var _ StorageClient = (*LocalStorageClient)(nil)
