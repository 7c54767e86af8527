package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role slugs seeded at install time.
const (
	RoleSuperAdmin = "super_admin"
	RoleBuilder    = "builder"
)

// Permission slugs checked by the authorization middleware.
const (
	PermissionAll             = "*"
	PermissionBuilderPortal   = "builder.portal"
	PermissionManageBuilders  = "admin.builders"
	PermissionManageProjects  = "admin.projects"
	PermissionManageFilters   = "admin.filters"
	PermissionViewActivityLog = "admin.logs"
)

type User struct {
	ID                 string             `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name               string             `json:"name" gorm:"not null"`
	Email              *string            `json:"email" gorm:"type:varchar(191);uniqueIndex"`
	Phone              *string            `json:"phone" gorm:"type:varchar(20);uniqueIndex"`
	Password           string             `json:"-"`
	OTPCode            string             `json:"-" gorm:"column:otp_code;type:varchar(6)"`
	OTPExpiresAt       *time.Time         `json:"-" gorm:"column:otp_expires_at"`
	IsPhoneVerified    bool               `json:"is_phone_verified" gorm:"default:false"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(20);index"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	CompanyName        string             `json:"company_name,omitempty"`
	Roles              []Role             `json:"roles,omitempty" gorm:"many2many:role_users"`
	Attachments        []Attachment       `json:"attachments,omitempty" gorm:"polymorphic:Owner;polymorphicValue:user"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// IsUnverifiedBuilder reports whether the builder gate must turn the user away.
func (u *User) IsUnverifiedBuilder() bool {
	return u != nil && u.HasRole(RoleBuilder) && u.VerificationStatus != VerificationVerified
}

// HasRole checks the loaded Roles slice.
func (u *User) HasRole(slug string) bool {
	for _, r := range u.Roles {
		if r.Slug == slug {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first role slug, or "user" for plain buyers.
func (u *User) PrimaryRole() string {
	if len(u.Roles) == 0 {
		return "user"
	}
	return u.Roles[0].Slug
}

type Role struct {
	ID          string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	Slug        string       `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Permission struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Slug        string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessToken backs a bearer JWT. The token is valid only while its row exists;
// the row id is the JWT "jti" claim.
type AccessToken struct {
	ID         string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string     `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Name       string     `json:"name"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
