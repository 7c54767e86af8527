package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/storage"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FileUpload is an incoming file, decoupled from multipart so services stay testable.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type uploadRule struct {
	extensions map[string]bool
	maxSize    int64
}

var uploadRules = map[models.AttachmentGroup]uploadRule{
	models.GroupKYC:      {extensions: map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}, maxSize: 5 << 20},
	models.GroupPhoto:    {extensions: map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}, maxSize: 10 << 20},
	models.GroupDocument: {extensions: map[string]bool{".pdf": true}, maxSize: 20 << 20},
}

// AttachmentService stores files and records them as Attachment rows.
type AttachmentService struct {
	storage   storage.StorageClient
	urlExpiry time.Duration
}

func NewAttachmentService(storageClient storage.StorageClient, urlExpiry time.Duration) *AttachmentService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &AttachmentService{storage: storageClient, urlExpiry: urlExpiry}
}

// Validate checks extension and size for the group. field names the request field in errors.
func (s *AttachmentService) Validate(field string, group models.AttachmentGroup, files []FileUpload) error {
	rule := uploadRules[group]
	fields := map[string][]string{}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !rule.extensions[ext] {
			fields[field] = append(fields[field], fmt.Sprintf("%s has an unsupported file type", f.Name))
			continue
		}
		if f.Size > rule.maxSize {
			fields[field] = append(fields[field], fmt.Sprintf("%s is larger than %d MB", f.Name, rule.maxSize>>20))
		}
	}
	if len(fields) > 0 {
		return utils.NewValidationError("The given data was invalid", fields)
	}
	return nil
}

// Store uploads every file and inserts its row through tx. Files already
// uploaded are removed again if a later one fails.
func (s *AttachmentService) Store(ctx context.Context, tx *gorm.DB, owner models.AttachmentOwner, ownerID string, group models.AttachmentGroup, files []FileUpload) ([]models.Attachment, error) {
	stored := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		objectName := storage.ObjectName(string(owner), ownerID, string(group), f.Name)
		result, err := s.storage.UploadFile(ctx, f.Reader, objectName, f.ContentType)
		if err != nil {
			s.Remove(ctx, stored)
			return nil, utils.WrapInternal(err, "failed to store file")
		}

		attachment := models.Attachment{
			OwnerType:    string(owner),
			OwnerID:      ownerID,
			Group:        group,
			OriginalName: f.Name,
			ObjectName:   result.ObjectName,
			MimeType:     f.ContentType,
			Size:         result.Size,
		}
		if err := tx.Create(&attachment).Error; err != nil {
			s.Remove(ctx, append(stored, attachment))
			return nil, utils.WrapInternal(err, "failed to record file")
		}
		stored = append(stored, attachment)
	}
	return stored, nil
}

// Sign fills the URL field of each attachment with a short-lived link.
func (s *AttachmentService) Sign(attachments []models.Attachment) {
	for i := range attachments {
		url, err := s.storage.GetSignedURL(attachments[i].ObjectName, s.urlExpiry)
		if err != nil {
			log.Warn().Err(err).Str("object", attachments[i].ObjectName).Msg("failed to sign attachment url")
			continue
		}
		attachments[i].URL = url
	}
}

// Remove deletes stored objects. Failures are logged, the rows are the source of truth.
func (s *AttachmentService) Remove(ctx context.Context, attachments []models.Attachment) {
	for _, a := range attachments {
		if err := s.storage.DeleteFile(ctx, a.ObjectName); err != nil {
			log.Warn().Err(err).Str("object", a.ObjectName).Msg("failed to delete stored file")
		}
	}
}

// Open streams a stored attachment.
func (s *AttachmentService) Open(ctx context.Context, a *models.Attachment) (io.ReadCloser, error) {
	return s.storage.ReadFile(ctx, a.ObjectName)
}

// OwnedAttachment loads an attachment whose owner (the user, or their
// property or project) belongs to actor.
func (s *AttachmentService) OwnedAttachment(ctx context.Context, actor *models.User, id string) (*models.Attachment, error) {
	db := internal.DB.WithContext(ctx)
	var a models.Attachment
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "attachment")
	}

	var owned int64
	var err error
	switch models.AttachmentOwner(a.OwnerType) {
	case models.OwnerUser:
		if a.OwnerID == actor.ID {
			owned = 1
		}
	case models.OwnerProperty:
		err = db.Model(&models.Property{}).Where("id = ? AND partner_id = ?", a.OwnerID, actor.ID).Count(&owned).Error
	case models.OwnerProject:
		err = db.Model(&models.Project{}).Where("id = ? AND user_id = ?", a.OwnerID, actor.ID).Count(&owned).Error
	}
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to load attachment")
	}
	if owned == 0 {
		return nil, utils.NewAuthorizationError("You do not own this attachment")
	}
	return &a, nil
}

// DeleteOwned removes an attachment row and its stored object.
func (s *AttachmentService) DeleteOwned(ctx context.Context, actor *models.User, id string) error {
	a, err := s.OwnedAttachment(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := internal.DB.WithContext(ctx).Delete(&models.Attachment{}, "id = ?", a.ID).Error; err != nil {
		return utils.WrapInternal(err, "failed to delete attachment")
	}
	s.Remove(ctx, []models.Attachment{*a})
	return nil
}
