package services

import (
	"context"
	"strings"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type BuilderRegisterRequest struct {
	Name                 string `form:"name" binding:"required,max=255"`
	Email                string `form:"email" binding:"required,email,max=191"`
	Phone                string `form:"phone" binding:"omitempty,phone"`
	CompanyName          string `form:"company_name" binding:"omitempty,max=255"`
	Password             string `form:"password" binding:"required,min=8"`
	PasswordConfirmation string `form:"password_confirmation" binding:"required"`
}

type BuilderService struct {
	attachments *AttachmentService
}

func NewBuilderService(attachments *AttachmentService) *BuilderService {
	return &BuilderService{attachments: attachments}
}

// RegisterBuilder creates a builder account awaiting review, with its KYC documents.
func (s *BuilderService) RegisterBuilder(ctx context.Context, req *BuilderRegisterRequest, files []FileUpload) (*models.User, error) {
	if err := confirmPassword(req.Password, req.PasswordConfirmation); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
			"kyc_documents": {"kyc_documents is required"},
		})
	}
	if err := s.attachments.Validate("kyc_documents", models.GroupKYC, files); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to hash password")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := &models.User{
		Name:               req.Name,
		Email:              &email,
		Password:           hashed,
		CompanyName:        req.CompanyName,
		VerificationStatus: models.VerificationPending,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	var stored []models.Attachment
	err = internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return utils.WrapInternal(err, "failed to register builder")
		}
		if taken > 0 {
			return utils.NewValidationError("The given data was invalid", map[string][]string{
				"email": {"The email has already been taken"},
			})
		}
		if err := tx.Omit("Roles", "Attachments").Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return utils.NewConflictError("phone or email has already been taken")
			}
			return utils.WrapInternal(err, "failed to register builder")
		}
		if err := assignRole(tx, user.ID, models.RoleBuilder); err != nil {
			return err
		}
		var err error
		stored, err = s.attachments.Store(ctx, tx, models.OwnerUser, user.ID, models.GroupKYC, files)
		return err
	})
	if err != nil {
		// The transaction rolled back, so the uploaded files have no rows.
		s.attachments.Remove(ctx, stored)
		return nil, err
	}

	s.attachments.Sign(stored)
	user.Attachments = stored
	log.Info().Str("user_id", user.ID).Int("documents", len(stored)).Msg("builder registered")
	return user, nil
}

// UploadKYC adds documents to the actor's account. A rejected builder goes back to pending.
func (s *BuilderService) UploadKYC(ctx context.Context, actor *models.User, files []FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
			"kyc_documents": {"kyc_documents is required"},
		})
	}
	if err := s.attachments.Validate("kyc_documents", models.GroupKYC, files); err != nil {
		return nil, err
	}

	var stored []models.Attachment
	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stored, err = s.attachments.Store(ctx, tx, models.OwnerUser, actor.ID, models.GroupKYC, files)
		if err != nil {
			return err
		}
		if actor.VerificationStatus != models.VerificationRejected {
			return nil
		}
		err = tx.Model(actor).Updates(map[string]interface{}{
			"verification_status": models.VerificationPending,
			"rejection_reason":    "",
		}).Error
		if err != nil {
			return utils.WrapInternal(err, "failed to update builder status")
		}
		return nil
	})
	if err != nil {
		s.attachments.Remove(ctx, stored)
		return nil, err
	}
	s.attachments.Sign(stored)
	return stored, nil
}

func builderQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.User{}).
		Joins("JOIN role_users ON role_users.user_id = users.id").
		Joins("JOIN roles ON roles.id = role_users.role_id").
		Where("roles.slug = ?", models.RoleBuilder)
}

// ListBuilders returns builder accounts, optionally by status, with signed KYC links.
func (s *BuilderService) ListBuilders(ctx context.Context, status string, page int) (*Page[models.User], error) {
	page, perPage := normalizePage(page, 20, 20)
	query := builderQuery(internal.DB.WithContext(ctx))
	if status != "" {
		query = query.Where("users.verification_status = ?", strings.ToLower(status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count builders")
	}
	var builders []models.User
	err := query.
		Preload("Attachments").
		Preload("Roles").
		Order("users.created_at DESC").
		Limit(perPage).
		Offset(offset(page, perPage)).
		Find(&builders).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list builders")
	}
	for i := range builders {
		s.attachments.Sign(builders[i].Attachments)
	}
	return newPage(builders, page, perPage, total), nil
}

// GetBuilder retrieves a builder with signed KYC document links
func (s *BuilderService) GetBuilder(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := builderQuery(internal.DB.WithContext(ctx)).
		Preload("Attachments").
		Preload("Roles").
		Where("users.id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, lookupError(err, "builder")
	}
	s.attachments.Sign(user.Attachments)
	return &user, nil
}

// ApproveBuilder marks a builder account as verified
func (s *BuilderService) ApproveBuilder(ctx context.Context, id string) (*models.User, error) {
	return s.transition(ctx, id, models.VerificationVerified, "")
}

// RejectBuilder marks a builder account as rejected with an optional reason
func (s *BuilderService) RejectBuilder(ctx context.Context, id, reason string) (*models.User, error) {
	return s.transition(ctx, id, models.VerificationRejected, reason)
}

func (s *BuilderService) transition(ctx context.Context, id string, to models.VerificationStatus, reason string) (*models.User, error) {
	user, err := s.GetBuilder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("builder", user.VerificationStatus, to); err != nil {
		return nil, err
	}

	err = internal.DB.WithContext(ctx).Model(&models.User{ID: user.ID}).Updates(map[string]interface{}{
		"verification_status": to,
		"rejection_reason":    reason,
	}).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to update builder status")
	}
	user.VerificationStatus = to
	user.RejectionReason = reason
	log.Info().Str("user_id", user.ID).Str("status", string(to)).Msg("builder verification status changed")
	return user, nil
}
