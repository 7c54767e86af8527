package services

import (
	"context"
	"strings"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectInput struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description string  `json:"description"`
	Location    string  `json:"location" binding:"required,max=255"`
	ReraNumber  *string `json:"rera_number" binding:"omitempty,max=100"`
	ProjectType string  `json:"project_type" binding:"omitempty,oneof=residential commercial"`
	Status      string  `json:"status" binding:"omitempty,oneof=Upcoming Ongoing Completed"`
	TotalUnits  int     `json:"total_units" binding:"gte=0"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ProjectService struct {
	attachments *AttachmentService
}

func NewProjectService(attachments *AttachmentService) *ProjectService {
	return &ProjectService{attachments: attachments}
}

// ListBuilderProjects lists the actor's projects, newest first.
func (s *ProjectService) ListBuilderProjects(ctx context.Context, actor *models.User, page int) (*Page[models.Project], error) {
	page, perPage := normalizePage(page, 20, 20)
	query := internal.DB.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", actor.ID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count projects")
	}
	var projects []models.Project
	err := query.Preload("Attachments").Order("created_at DESC").Limit(perPage).Offset(offset(page, perPage)).Find(&projects).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list projects")
	}
	for i := range projects {
		s.attachments.Sign(projects[i].Attachments)
	}
	return newPage(projects, page, perPage, total), nil
}

// GetBuilderProject returns a project the actor owns.
func (s *ProjectService) GetBuilderProject(ctx context.Context, actor *models.User, id string) (*models.Project, error) {
	project, err := ownedProject(internal.DB.WithContext(ctx).Preload("Attachments").Preload("Properties"), actor, id)
	if err != nil {
		return nil, err
	}
	s.attachments.Sign(project.Attachments)
	return project, nil
}

// CreateProject stores a new Draft project for the actor.
func (s *ProjectService) CreateProject(ctx context.Context, actor *models.User, in *ProjectInput) (*models.Project, error) {
	project := &models.Project{UserID: actor.ID, VerificationStatus: models.VerificationDraft}
	applyProjectInput(project, in)

	if err := internal.DB.WithContext(ctx).Create(project).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
				"rera_number": {"The rera_number has already been taken"},
			})
		}
		return nil, utils.WrapInternal(err, "failed to create project")
	}
	return project, nil
}

// UpdateProject edits a project. Editing a verified project sends it back to review.
func (s *ProjectService) UpdateProject(ctx context.Context, actor *models.User, id string, in *ProjectInput) (*models.Project, error) {
	db := internal.DB.WithContext(ctx)
	project, err := ownedProject(db, actor, id)
	if err != nil {
		return nil, err
	}
	applyProjectInput(project, in)
	if project.VerificationStatus == models.VerificationVerified {
		project.VerificationStatus = models.VerificationPending
	}

	if err := db.Omit("Builder", "Properties", "Leads", "Attachments").Save(project).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
				"rera_number": {"The rera_number has already been taken"},
			})
		}
		return nil, utils.WrapInternal(err, "failed to update project")
	}
	return project, nil
}

// DeleteProject removes the project with its properties, leads and files.
// Rows go in one transaction; stored files are deleted only after it commits.
func (s *ProjectService) DeleteProject(ctx context.Context, actor *models.User, id string) error {
	db := internal.DB.WithContext(ctx)
	if _, err := ownedProject(db, actor, id); err != nil {
		return err
	}

	var attachments []models.Attachment
	err := db.Transaction(func(tx *gorm.DB) error {
		var propertyIDs []string
		if err := tx.Model(&models.Property{}).Where("project_id = ?", id).Pluck("id", &propertyIDs).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete project")
		}
		for _, pid := range propertyIDs {
			files, err := deletePropertyRows(tx, pid)
			if err != nil {
				return err
			}
			attachments = append(attachments, files...)
		}

		var own []models.Attachment
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.OwnerProject, id).Find(&own).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete project")
		}
		attachments = append(attachments, own...)
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.OwnerProject, id).Delete(&models.Attachment{}).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete project attachments")
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Lead{}).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete project leads")
		}
		if err := tx.Delete(&models.Project{}, "id = ?", id).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete project")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.attachments.Remove(ctx, attachments)
	return nil
}

// SubmitProject sends a Draft or Rejected project to the admin queue.
func (s *ProjectService) SubmitProject(ctx context.Context, actor *models.User, id string) (*models.Project, error) {
	db := internal.DB.WithContext(ctx)
	project, err := ownedProject(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("project", project.VerificationStatus, models.VerificationPending); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, project, models.VerificationPending, "")
}

// AddDocuments uploads brochures or approvals for an owned project.
func (s *ProjectService) AddDocuments(ctx context.Context, actor *models.User, id string, group models.AttachmentGroup, files []FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{"files": {"files is required"}})
	}
	if err := s.attachments.Validate("files", group, files); err != nil {
		return nil, err
	}
	db := internal.DB.WithContext(ctx)
	if _, err := ownedProject(db, actor, id); err != nil {
		return nil, err
	}
	stored, err := s.attachments.Store(ctx, db, models.OwnerProject, id, group, files)
	if err != nil {
		return nil, err
	}
	s.attachments.Sign(stored)
	return stored, nil
}

// AdminListProjects orders the queue Pending, Draft, Verified, Rejected, newest first within each.
func (s *ProjectService) AdminListProjects(ctx context.Context, status string, page int) (*Page[models.Project], error) {
	page, perPage := normalizePage(page, 20, 20)
	query := internal.DB.WithContext(ctx).Model(&models.Project{})
	if status != "" {
		query = query.Where("verification_status = ?", strings.ToLower(status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count projects")
	}
	var projects []models.Project
	err := query.
		Preload("Builder").
		Preload("Attachments").
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL: "CASE verification_status WHEN ? THEN 1 WHEN ? THEN 2 WHEN ? THEN 3 WHEN ? THEN 4 ELSE 5 END, created_at DESC",
			Vars: []interface{}{
				models.VerificationPending, models.VerificationDraft, models.VerificationVerified, models.VerificationRejected,
			},
		}}).
		Limit(perPage).
		Offset(offset(page, perPage)).
		Find(&projects).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list projects")
	}
	for i := range projects {
		s.attachments.Sign(projects[i].Attachments)
	}
	return newPage(projects, page, perPage, total), nil
}

// ApproveProject marks a project as verified
func (s *ProjectService) ApproveProject(ctx context.Context, id string) (*models.Project, error) {
	return s.adminTransition(ctx, id, models.VerificationVerified, "")
}

// RejectProject marks a project as rejected with an optional reason
func (s *ProjectService) RejectProject(ctx context.Context, id, reason string) (*models.Project, error) {
	return s.adminTransition(ctx, id, models.VerificationRejected, reason)
}

func (s *ProjectService) adminTransition(ctx context.Context, id string, to models.VerificationStatus, reason string) (*models.Project, error) {
	var project models.Project
	if err := internal.DB.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "project")
	}
	if err := checkTransition("project", project.VerificationStatus, to); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, &project, to, reason)
}

func (s *ProjectService) setStatus(ctx context.Context, project *models.Project, to models.VerificationStatus, reason string) (*models.Project, error) {
	err := internal.DB.WithContext(ctx).Model(project).Updates(map[string]interface{}{
		"verification_status": to,
		"rejection_reason":    reason,
	}).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to update project status")
	}
	project.VerificationStatus = to
	project.RejectionReason = reason
	log.Info().Str("project_id", project.ID).Str("status", string(to)).Msg("project verification status changed")
	return project, nil
}

func ownedProject(tx *gorm.DB, actor *models.User, id string) (*models.Project, error) {
	var project models.Project
	if err := tx.First(&project, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "project")
	}
	if project.UserID != actor.ID {
		return nil, utils.NewAuthorizationError("You do not own this project")
	}
	return &project, nil
}

func applyProjectInput(p *models.Project, in *ProjectInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Location = strings.TrimSpace(in.Location)
	if in.ReraNumber != nil && strings.TrimSpace(*in.ReraNumber) == "" {
		in.ReraNumber = nil
	}
	p.ReraNumber = in.ReraNumber
	if in.ProjectType != "" {
		p.ProjectType = in.ProjectType
	}
	if in.Status != "" {
		p.Status = models.ProjectStatus(in.Status)
	}
	p.TotalUnits = in.TotalUnits
}
