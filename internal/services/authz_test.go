package services

import (
	"context"
	"testing"

	"keywe-backend/internal/cache"
	"keywe-backend/internal/models"
)

func TestCanHonoursWildcard(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	authz := NewAuthzService(cache.NewMemory(), 0)

	admin := createUser(t, "Admin", models.VerificationVerified, models.RoleSuperAdmin)
	builder := createUser(t, "Builder", models.VerificationVerified, models.RoleBuilder)
	buyer := createUser(t, "Buyer", models.VerificationNone)

	tests := []struct {
		name string
		user *models.User
		perm string
		want bool
	}{
		{"admin reviews projects", admin, models.PermissionManageProjects, true},
		{"admin uses portal", admin, models.PermissionBuilderPortal, true},
		{"builder uses portal", builder, models.PermissionBuilderPortal, true},
		{"builder cannot review projects", builder, models.PermissionManageProjects, false},
		{"buyer has nothing", buyer, models.PermissionBuilderPortal, false},
		{"nil user", nil, models.PermissionBuilderPortal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Can(ctx, tt.user, tt.perm)
			if err != nil {
				t.Fatalf("Can: %v", err)
			}
			if got != tt.want {
				t.Errorf("Can(%s) = %v, want %v", tt.perm, got, tt.want)
			}
		})
	}
}

func TestInitializeDefaultRolesIsIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	authz := NewAuthzService(nil, 0)

	for i := 0; i < 2; i++ {
		if err := authz.InitializeDefaultRoles(ctx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if n := pivotCount(t, "role_permissions", "role_id", "role_builder"); n != 1 {
		t.Errorf("builder permissions = %d, want 1", n)
	}
	if n := pivotCount(t, "role_permissions", "role_id", "role_super_admin"); n != 1 {
		t.Errorf("super admin permissions = %d, want 1", n)
	}
}
