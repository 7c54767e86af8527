package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T) *LocalStorageClient {
	t.Helper()
	client, err := NewLocalStorageClient(t.TempDir(), "http://localhost:8080/files/", "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func signedParts(t *testing.T, raw string) (string, int64, string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		t.Fatalf("expires: %v", err)
	}
	return strings.TrimPrefix(u.Path, "/files/"), expires, u.Query().Get("signature")
}

func TestUploadReadDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	res, err := client.UploadFile(ctx, strings.NewReader("hello"), "property/p1/photo/front.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Size != 5 || res.PublicURL != "http://localhost:8080/files/property/p1/photo/front.jpg" {
		t.Errorf("result = %+v", res)
	}

	rc, err := client.ReadFile(ctx, res.ObjectName)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if err := client.DeleteFile(ctx, res.ObjectName); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.DeleteFile(ctx, res.ObjectName); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(client.basePath, "property")); !os.IsNotExist(err) {
		t.Errorf("empty directories left behind: %v", err)
	}
}

func TestSignedURLRoundTrip(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	raw, err := client.GetSignedURL("user/u1/kyc/pan.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	object, expires, signature := signedParts(t, raw)

	path, err := client.ResolveSigned(object, expires, signature)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasSuffix(path, "user/u1/kyc/pan.pdf") {
		t.Errorf("path = %s", path)
	}

	if _, err := client.ResolveSigned("user/u1/kyc/other.pdf", expires, signature); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("signature reused for another object: %v", err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := client.ResolveSigned(object, expires, signature); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expired url accepted: %v", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	client := newTestClient(t)
	expires := time.Now().Add(time.Hour).Unix()

	for _, name := range []string{"", "../etc/passwd", "a/../../b"} {
		if _, err := client.ResolveSigned(name, expires, "x"); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("resolve %q: err = %v, want ErrInvalidPath", name, err)
		}
	}
	for _, name := range []string{"../escape.txt", "/etc/passwd"} {
		if _, err := client.UploadFile(context.Background(), strings.NewReader("x"), name, ""); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("upload %q: err = %v, want ErrInvalidPath", name, err)
		}
	}
}

func TestObjectName(t *testing.T) {
	name := ObjectName("property", "p1", "photo", "Front View.JPG")
	if !strings.HasPrefix(name, "property/p1/photo/") || !strings.HasSuffix(name, "-front-view.jpg") {
		t.Errorf("object name = %s", name)
	}
	if ObjectName("property", "p1", "photo", "a.jpg") == ObjectName("property", "p1", "photo", "a.jpg") {
		t.Error("object names collide")
	}
}
