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

// PropertyQuery drives ListProperties. Search takes precedence over AutoCity;
// AutoCity is ignored whenever Search is non-empty.
type PropertyQuery struct {
	Search   string
	AutoCity string
	// Filters maps a filter slug to accepted option values. A property must
	// carry at least one of the values for every slug given.
	Filters map[string][]string
	Page    int

	// Intent constraints used by preference matching.
	MinPrice      *int64
	MaxPrice      *int64
	BHKs          []string
	PropertyTypes []string
	Localities    []string
}

type PropertyInput struct {
	ProjectID          *string `json:"project_id"`
	Title              string  `json:"title" binding:"required,max=255"`
	Description        string  `json:"description"`
	Price              int64   `json:"price" binding:"gte=0"`
	CarpetArea         int     `json:"carpet_area" binding:"gte=0"`
	BHK                string  `json:"bhk" binding:"max=20"`
	PropertyType       string  `json:"property_type" binding:"omitempty,oneof=Apartment Villa Plot Studio Penthouse"`
	Location           string  `json:"location" binding:"required,max=255"`
	FloorNumber        int     `json:"floor_number" binding:"gte=0"`
	TotalFloors        int     `json:"total_floors" binding:"gte=0"`
	ConstructionStatus string  `json:"construction_status" binding:"max=50"`
	PossessionDate     string  `json:"possession_date" binding:"max=50"`
	FinancingOption    string  `json:"financing_option" binding:"omitempty,oneof=Loan 'Full Payment' Both"`
	Status             string  `json:"status" binding:"omitempty,oneof=Available Reserved Sold"`
}

type PropertyService struct {
	attachments *AttachmentService
	stats       *StatisticsService
}

func NewPropertyService(attachments *AttachmentService, stats *StatisticsService) *PropertyService {
	return &PropertyService{attachments: attachments, stats: stats}
}

func withListingRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Project").
		Preload("Attachments").
		Preload("FilterOptions", func(db *gorm.DB) *gorm.DB {
			return db.Order("filter_options.sort_order ASC")
		})
}

// ListProperties returns one page of listings, newest first.
func (s *PropertyService) ListProperties(ctx context.Context, q PropertyQuery) (*Page[models.Property], error) {
	page, perPage := normalizePage(q.Page, PropertyPageSize, PropertyPageSize)

	query := applyPropertyQuery(internal.DB.WithContext(ctx).Model(&models.Property{}), q).Session(&gorm.Session{})

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count properties")
	}

	// Get paginated results
	var properties []models.Property
	err := withListingRelations(query).
		Order("properties.created_at DESC").
		Limit(perPage).
		Offset(offset(page, perPage)).
		Find(&properties).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list properties")
	}

	for i := range properties {
		s.sign(&properties[i])
	}
	return newPage(properties, page, perPage, total), nil
}

// likeEscaper makes user input match literally inside LIKE ... ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func applyPropertyQuery(db *gorm.DB, q PropertyQuery) *gorm.DB {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	city := strings.ToLower(strings.TrimSpace(q.AutoCity))

	switch {
	case search != "":
		like := containsPattern(search)
		db = db.Where("(LOWER(properties.title) LIKE ? ESCAPE '!' OR LOWER(properties.location) LIKE ? ESCAPE '!')", like, like)
	case city != "":
		db = db.Where("LOWER(properties.location) LIKE ? ESCAPE '!'", containsPattern(city))
	}

	for filterSlug, values := range q.Filters {
		values = uniqueIDs(values)
		if len(values) == 0 {
			continue
		}
		db = db.Where(`properties.id IN (
			SELECT pfo.property_id FROM property_filter_option pfo
			JOIN filter_options fo ON fo.id = pfo.filter_option_id
			JOIN filters f ON f.id = fo.filter_id
			WHERE f.slug = ? AND fo.value IN ?)`, filterSlug, values)
	}

	if q.MinPrice != nil {
		db = db.Where("properties.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("properties.price <= ?", *q.MaxPrice)
	}
	switch {
	case len(q.BHKs) > 0 && len(q.PropertyTypes) > 0:
		db = db.Where("(properties.bhk IN ? OR properties.property_type IN ?)", q.BHKs, q.PropertyTypes)
	case len(q.BHKs) > 0:
		db = db.Where("properties.bhk IN ?", q.BHKs)
	case len(q.PropertyTypes) > 0:
		db = db.Where("properties.property_type IN ?", q.PropertyTypes)
	}
	if len(q.Localities) > 0 {
		clauses := make([]string, 0, len(q.Localities))
		args := make([]interface{}, 0, len(q.Localities))
		for _, l := range q.Localities {
			clauses = append(clauses, "LOWER(properties.location) LIKE ? ESCAPE '!'")
			args = append(args, containsPattern(strings.ToLower(l)))
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	return db
}

// GetPropertyDetails loads one property with its project, attachments and tags.
func (s *PropertyService) GetPropertyDetails(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := withListingRelations(internal.DB.WithContext(ctx)).First(&property, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "property")
	}
	s.sign(&property)
	return &property, nil
}

// RecordView counts a detail view for the property and its project.
func (s *PropertyService) RecordView(ctx context.Context, property *models.Property) {
	if s.stats == nil {
		return
	}
	if err := s.stats.RecordPropertyView(ctx, property.ID); err != nil {
		log.Warn().Err(err).Str("property_id", property.ID).Msg("failed to record property view")
	}
	if property.ProjectID != nil {
		err := internal.DB.WithContext(ctx).Model(&models.Project{}).
			Where("id = ?", *property.ProjectID).
			UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
		if err != nil {
			log.Warn().Err(err).Str("project_id", *property.ProjectID).Msg("failed to bump project views")
		}
		if err := s.stats.record(ctx, models.EventProjectView, *property.ProjectID); err != nil {
			log.Warn().Err(err).Str("project_id", *property.ProjectID).Msg("failed to record project view")
		}
	}
}

func (s *PropertyService) sign(p *models.Property) {
	if s.attachments != nil {
		s.attachments.Sign(p.Attachments)
	}
}

// ListBuilderProperties lists the actor's own properties, optionally within one project.
func (s *PropertyService) ListBuilderProperties(ctx context.Context, actor *models.User, projectID string, page int) (*Page[models.Property], error) {
	page, perPage := normalizePage(page, PropertyPageSize, PropertyPageSize)
	query := internal.DB.WithContext(ctx).Model(&models.Property{}).Where("partner_id = ?", actor.ID)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to count properties")
	}
	var properties []models.Property
	err := withListingRelations(query).Order("created_at DESC").Limit(perPage).Offset(offset(page, perPage)).Find(&properties).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list properties")
	}
	for i := range properties {
		s.sign(&properties[i])
	}
	return newPage(properties, page, perPage, total), nil
}

// CreateProperty stores a new listing for the actor and derives its tags in the same transaction.
func (s *PropertyService) CreateProperty(ctx context.Context, actor *models.User, in *PropertyInput) (*models.Property, error) {
	property := &models.Property{PartnerID: actor.ID}
	applyPropertyInput(property, in)

	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkProjectOwnership(tx, actor, property.ProjectID); err != nil {
			return err
		}
		if err := tx.Create(property).Error; err != nil {
			return utils.WrapInternal(err, "failed to create property")
		}
		if _, err := tagProperty(tx, property); err != nil {
			return utils.WrapInternal(err, "failed to tag property")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPropertyDetails(ctx, property.ID)
}

// UpdateProperty overwrites the listing columns and attaches any newly derived tags.
func (s *PropertyService) UpdateProperty(ctx context.Context, actor *models.User, id string, in *PropertyInput) (*models.Property, error) {
	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := ownedProperty(tx, actor, id)
		if err != nil {
			return err
		}
		applyPropertyInput(property, in)
		if err := checkProjectOwnership(tx, actor, property.ProjectID); err != nil {
			return err
		}
		if err := tx.Omit("Project", "Attachments", "FilterOptions").Save(property).Error; err != nil {
			return utils.WrapInternal(err, "failed to update property")
		}
		if _, err := tagProperty(tx, property); err != nil {
			return utils.WrapInternal(err, "failed to tag property")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPropertyDetails(ctx, id)
}

// DeleteProperty removes a property owned by actor.
func (s *PropertyService) DeleteProperty(ctx context.Context, actor *models.User, id string) error {
	if _, err := ownedProperty(internal.DB.WithContext(ctx), actor, id); err != nil {
		return err
	}
	return s.deleteProperty(ctx, id)
}

// deleteProperty removes the property, its tag links and its attachment rows
// in one transaction, then deletes the stored files.
func (s *PropertyService) deleteProperty(ctx context.Context, id string) error {
	var attachments []models.Attachment
	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attachments, err = deletePropertyRows(tx, id)
		return err
	})
	if err != nil {
		return err
	}
	if s.attachments != nil {
		s.attachments.Remove(ctx, attachments)
	}
	return nil
}

// deletePropertyRows deletes the property with its tag links and attachment
// rows inside tx and returns the attachments whose files the caller removes
// once tx commits.
func deletePropertyRows(tx *gorm.DB, id string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := tx.Where("owner_type = ? AND owner_id = ?", models.OwnerProperty, id).Find(&attachments).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to load attachments")
	}
	if err := propertyFilterOptionPivot.detachAll(tx, id); err != nil {
		return nil, utils.WrapInternal(err, "failed to remove property tags")
	}
	if err := tx.Where("owner_type = ? AND owner_id = ?", models.OwnerProperty, id).Delete(&models.Attachment{}).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to remove attachments")
	}
	result := tx.Delete(&models.Property{}, "id = ?", id)
	if result.Error != nil {
		return nil, utils.WrapInternal(result.Error, "failed to delete property")
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewNotFoundError("property")
	}
	return attachments, nil
}

// AddPhotos uploads listing photos for a property owned by actor.
func (s *PropertyService) AddPhotos(ctx context.Context, actor *models.User, id string, files []FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{"photos": {"photos is required"}})
	}
	if err := s.attachments.Validate("photos", models.GroupPhoto, files); err != nil {
		return nil, err
	}
	db := internal.DB.WithContext(ctx)
	if _, err := ownedProperty(db, actor, id); err != nil {
		return nil, err
	}
	stored, err := s.attachments.Store(ctx, db, models.OwnerProperty, id, models.GroupPhoto, files)
	if err != nil {
		return nil, err
	}
	s.attachments.Sign(stored)
	return stored, nil
}

func ownedProperty(tx *gorm.DB, actor *models.User, id string) (*models.Property, error) {
	var property models.Property
	if err := tx.First(&property, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "property")
	}
	if property.PartnerID != actor.ID {
		return nil, utils.NewAuthorizationError("You do not own this property")
	}
	return &property, nil
}

func checkProjectOwnership(tx *gorm.DB, actor *models.User, projectID *string) error {
	if projectID == nil || *projectID == "" {
		return nil
	}
	var project models.Project
	if err := tx.Select("id", "user_id").First(&project, "id = ?", *projectID).Error; err != nil {
		if utils.IsKind(lookupError(err, "project"), utils.KindNotFound) {
			return utils.NewValidationError("The given data was invalid", map[string][]string{
				"project_id": {"The selected project_id is invalid"},
			})
		}
		return utils.WrapInternal(err, "failed to load project")
	}
	if project.UserID != actor.ID {
		return utils.NewAuthorizationError("You do not own this project")
	}
	return nil
}

func applyPropertyInput(p *models.Property, in *PropertyInput) {
	if in.ProjectID != nil && *in.ProjectID == "" {
		in.ProjectID = nil
	}
	p.ProjectID = in.ProjectID
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Price = in.Price
	p.CarpetArea = in.CarpetArea
	p.BHK = strings.TrimSpace(in.BHK)
	p.PropertyType = in.PropertyType
	p.Location = strings.TrimSpace(in.Location)
	p.FloorNumber = in.FloorNumber
	p.TotalFloors = in.TotalFloors
	p.ConstructionStatus = in.ConstructionStatus
	p.PossessionDate = in.PossessionDate
	p.FinancingOption = in.FinancingOption
	if in.Status != "" {
		p.Status = models.PropertyStatus(in.Status)
	}
}
