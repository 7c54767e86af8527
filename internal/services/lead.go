package services

import (
	"context"
	"strings"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type LeadInput struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"omitempty,email,max=191"`
	Phone   string `json:"phone" binding:"required,phone"`
	Message string `json:"message" binding:"max=2000"`
}

type LeadQuery struct {
	ProjectID string
	Status    string
	Page      int
}

type LeadService struct {
	stats *StatisticsService
	now   func() time.Time
}

func NewLeadService(stats *StatisticsService) *LeadService {
	return &LeadService{stats: stats, now: time.Now}
}

// CreateLead records a buyer enquiry. Only verified projects accept leads.
func (s *LeadService) CreateLead(ctx context.Context, projectID string, in *LeadInput) (*models.Lead, error) {
	db := internal.DB.WithContext(ctx)
	var project models.Project
	err := db.Where("id = ? AND verification_status = ?", projectID, models.VerificationVerified).First(&project).Error
	if err != nil {
		return nil, lookupError(err, "project")
	}

	lead := &models.Lead{
		ProjectID: project.ID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Message:   in.Message,
	}
	if err := db.Create(lead).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to create lead")
	}
	if err := s.stats.RecordLead(ctx, project.ID); err != nil {
		log.Warn().Err(err).Str("project_id", project.ID).Msg("failed to record lead stat")
	}
	return lead, nil
}

// ListLeads is the builder inbox across the actor's projects, newest first.
func (s *LeadService) ListLeads(ctx context.Context, actor *models.User, q LeadQuery) (*Page[models.Lead], error) {
	db := internal.DB.WithContext(ctx)
	if q.ProjectID != "" {
		if _, err := ownedProject(db, actor, q.ProjectID); err != nil {
			return nil, err
		}
	}

	page, perPage := normalizePage(q.Page, 20, 50)
	query := db.Model(&models.Lead{}).
		Joins("JOIN projects ON projects.id = leads.project_id").
		Where("projects.user_id = ?", actor.ID)
	if q.ProjectID != "" {
		query = query.Where("leads.project_id = ?", q.ProjectID)
	}
	if q.Status != "" {
		query = query.Where("leads.status = ?", q.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count leads")
	}
	var leads []models.Lead
	err := query.Preload("Project").
		Order("leads.created_at DESC").
		Limit(perPage).
		Offset(offset(page, perPage)).
		Find(&leads).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list leads")
	}
	return newPage(leads, page, perPage, total), nil
}

// MarkContacted moves a lead to Contacted. Repeating it keeps the first contact time.
func (s *LeadService) MarkContacted(ctx context.Context, actor *models.User, id string) (*models.Lead, error) {
	db := internal.DB.WithContext(ctx)
	var lead models.Lead
	if err := db.Preload("Project").First(&lead, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "lead")
	}
	if lead.Project == nil || lead.Project.UserID != actor.ID {
		return nil, utils.NewAuthorizationError("You do not own this lead")
	}
	if lead.Status == models.LeadContacted {
		return &lead, nil
	}

	now := s.now()
	err := db.Model(&lead).Updates(map[string]interface{}{
		"status":       models.LeadContacted,
		"contacted_at": now,
	}).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to update lead")
	}
	lead.Status = models.LeadContacted
	lead.ContactedAt = &now
	return &lead, nil
}
