package services

import (
	"context"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/cache"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthzService answers capability checks against the role and permission tables.
type AuthzService struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewAuthzService(c cache.Cache, ttl time.Duration) *AuthzService {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AuthzService{cache: c, ttl: ttl}
}

func rolePermissionsKey(slug string) string {
	return "perms:role:" + slug
}

// Can reports whether any of the user's roles grants permission, either
// directly or through the "*" wildcard. user.Roles must be loaded.
func (s *AuthzService) Can(ctx context.Context, user *models.User, permission string) (bool, error) {
	if user == nil {
		return false, nil
	}
	for _, role := range user.Roles {
		perms, err := s.rolePermissions(ctx, role.Slug)
		if err != nil {
			return false, err
		}
		for _, p := range perms {
			if p == models.PermissionAll || p == permission {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *AuthzService) rolePermissions(ctx context.Context, slug string) ([]string, error) {
	key := rolePermissionsKey(slug)
	var perms []string
	if ok, err := s.cache.Get(ctx, key, &perms); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("permission cache read failed")
	} else if ok {
		return perms, nil
	}

	err := internal.DB.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.slug = ?", slug).
		Pluck("permissions.slug", &perms).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to load permissions")
	}
	if err := s.cache.Set(ctx, key, perms, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("permission cache write failed")
	}
	return perms, nil
}

var defaultPermissions = []models.Permission{
	{ID: "perm_all", Slug: models.PermissionAll, Description: "Full access"},
	{ID: "perm_builder_portal", Slug: models.PermissionBuilderPortal, Description: "Builder portal"},
	{ID: "perm_admin_builders", Slug: models.PermissionManageBuilders, Description: "Review builder accounts"},
	{ID: "perm_admin_projects", Slug: models.PermissionManageProjects, Description: "Review projects"},
	{ID: "perm_admin_filters", Slug: models.PermissionManageFilters, Description: "Manage the filter taxonomy"},
	{ID: "perm_admin_logs", Slug: models.PermissionViewActivityLog, Description: "Read the activity log and statistics"},
}

var defaultRoles = []struct {
	role        models.Role
	permissions []string
}{
	{models.Role{ID: "role_super_admin", Slug: models.RoleSuperAdmin, Name: "Super Admin"}, []string{"perm_all"}},
	{models.Role{ID: "role_builder", Slug: models.RoleBuilder, Name: "Builder"}, []string{"perm_builder_portal"}},
}

// InitializeDefaultRoles seeds the permission catalogue and the two built-in roles.
func (s *AuthzService) InitializeDefaultRoles(ctx context.Context) error {
	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPermissions {
			perm := p
			if err := tx.Where("slug = ?", perm.Slug).Attrs(perm).FirstOrCreate(&perm).Error; err != nil {
				return err
			}
		}
		for _, r := range defaultRoles {
			role := r.role
			if err := tx.Where("slug = ?", role.Slug).Attrs(role).FirstOrCreate(&role).Error; err != nil {
				return err
			}
			var permIDs []string
			if err := tx.Model(&models.Permission{}).Where("id IN ?", r.permissions).Pluck("id", &permIDs).Error; err != nil {
				return err
			}
			if err := rolePermissionsPivot.attach(tx, role.ID, permIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.WrapInternal(err, "failed to seed roles")
	}

	keys := make([]string, 0, len(defaultRoles))
	for _, r := range defaultRoles {
		keys = append(keys, rolePermissionsKey(r.role.Slug))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("failed to clear permission cache")
	}
	log.Info().Int("roles", len(defaultRoles)).Msg("default roles initialized")
	return nil
}

// assignRole links userID to the role with slug inside tx.
func assignRole(tx *gorm.DB, userID, slug string) error {
	var role models.Role
	if err := tx.Where("slug = ?", slug).First(&role).Error; err != nil {
		return lookupError(err, "role "+slug)
	}
	if err := roleUsersPivot.attach(tx, userID, []string{role.ID}); err != nil {
		return utils.WrapInternal(err, "failed to assign role")
	}
	return nil
}
