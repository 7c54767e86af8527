package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"keywe-backend/internal"
	"keywe-backend/internal/config"
	"keywe-backend/internal/models"
	"keywe-backend/internal/storage"
	"keywe-backend/internal/utils"
)

// setupTestDB points internal.DB at a fresh sqlite file for the duration of the test.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := internal.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := internal.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := internal.DB
	internal.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		internal.DB = prev
	})
}

func newTestAttachments(t *testing.T) *AttachmentService {
	t.Helper()
	client, err := storage.NewLocalStorageClient(t.TempDir(), "http://localhost/files", "test-secret")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	return NewAttachmentService(client, 0)
}

func createUser(t *testing.T, name string, status models.VerificationStatus, roles ...string) *models.User {
	t.Helper()
	ctx := context.Background()

	if len(roles) > 0 {
		if err := NewAuthzService(nil, 0).InitializeDefaultRoles(ctx); err != nil {
			t.Fatalf("seed roles: %v", err)
		}
	}

	email := strings.ToLower(name) + "@example.com"
	user := &models.User{Name: name, Email: &email, VerificationStatus: status}
	if err := internal.DB.Omit("Roles", "Attachments").Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, role := range roles {
		if err := assignRole(internal.DB, user.ID, role); err != nil {
			t.Fatalf("assign role %s: %v", role, err)
		}
	}
	if err := internal.DB.Preload("Roles").First(user, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func createProject(t *testing.T, owner *models.User, name string, status models.VerificationStatus) *models.Project {
	t.Helper()
	project := &models.Project{UserID: owner.ID, Name: name, Location: "Pune", VerificationStatus: status}
	if err := internal.DB.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func assertKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if !utils.IsKind(err, kind) {
		t.Fatalf("error = %v, want kind %s", err, kind)
	}
}

func pivotCount(t *testing.T, table, column, id string) int64 {
	t.Helper()
	var n int64
	if err := internal.DB.Table(table).Where(column+" = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
