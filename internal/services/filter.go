package services

import (
	"context"
	"fmt"
	"strings"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type FilterService struct{}

func NewFilterService() *FilterService {
	return &FilterService{}
}

// TaxonomyOption is one option of a seeded filter.
type TaxonomyOption struct {
	Label string
	Value string
}

// TaxonomyEntry describes one filter and the options it must at least contain.
type TaxonomyEntry struct {
	Name    string
	Slug    string
	Type    models.FilterType
	Options []TaxonomyOption
}

type CreateFilterRequest struct {
	Name      string            `json:"name" binding:"required,max=100"`
	Slug      string            `json:"slug" binding:"omitempty,slug"`
	Type      models.FilterType `json:"type" binding:"omitempty,oneof=select range checkbox"`
	SortOrder int               `json:"sort_order"`
}

type UpdateFilterRequest struct {
	Name      string            `json:"name" binding:"omitempty,max=100"`
	Type      models.FilterType `json:"type" binding:"omitempty,oneof=select range checkbox"`
	SortOrder *int              `json:"sort_order"`
}

type CreateFilterOptionRequest struct {
	Label     string `json:"label" binding:"required,max=191"`
	Value     string `json:"value" binding:"required,max=191"`
	SortOrder int    `json:"sort_order"`
}

type UpdateFilterOptionRequest struct {
	Label     string `json:"label" binding:"omitempty,max=191"`
	SortOrder *int   `json:"sort_order"`
}

// DefaultTaxonomy is the canonical facet set offered to buyers.
func DefaultTaxonomy() []TaxonomyEntry {
	return []TaxonomyEntry{
		{Name: "Price", Slug: "price", Options: []TaxonomyOption{
			{"Under ₹50 Lakhs", "0-5000000"},
			{"₹50 L - ₹1 Cr", "5000000-10000000"},
			{"₹1 Cr - ₹1.5 Cr", "10000000-15000000"},
			{"₹1.5 Cr - ₹2 Cr", "15000000-20000000"},
			{"₹2 Cr - ₹3 Cr", "20000000-30000000"},
			{"₹3 Cr - ₹5 Cr", "30000000-50000000"},
			{"Above ₹5 Cr", "50000000-9999999999"},
		}},
		{Name: "Carpet Area", Slug: "carpet-area", Options: []TaxonomyOption{
			{"Under 500 sqft", "0-500"},
			{"500 - 800 sqft", "500-800"},
			{"800 - 1200 sqft", "800-1200"},
			{"1200 - 1800 sqft", "1200-1800"},
			{"1800 - 2500 sqft", "1800-2500"},
			{"Above 2500 sqft", "2500-99999"},
		}},
		{Name: "Floor", Slug: "floor", Options: []TaxonomyOption{
			{"Ground / Low Rise (0-4)", "0-4"},
			{"Mid Rise (5-10)", "5-10"},
			{"High Rise (11-20)", "11-20"},
			{"Sky High (21+)", "21-200"},
		}},
		{Name: "Financing", Slug: "financing", Options: []TaxonomyOption{
			{"Loan Available", "Loan"},
			{"Full Payment Only", "Full Payment"},
			{"Both Options", "Both"},
		}},
		{Name: "BHK", Slug: "bhk", Options: []TaxonomyOption{
			{"1 BHK", "1"},
			{"1.5 BHK", "1.5"},
			{"2 BHK", "2"},
			{"2.5 BHK", "2.5"},
			{"3 BHK", "3"},
			{"3.5 BHK", "3.5"},
			{"4 BHK", "4"},
			{"4+ BHK", "4+"},
			{"Studio", "Studio"},
		}},
		{Name: "Property Type", Slug: "property-type", Options: []TaxonomyOption{
			{"Apartment", "Apartment"},
			{"Villa", "Villa"},
			{"Plot", "Plot"},
			{"Studio", "Studio"},
			{"Penthouse", "Penthouse"},
		}},
		{Name: "Construction Status", Slug: "construction-status", Options: []TaxonomyOption{
			{"Ready to Move", "Ready to Move"},
			{"Under Construction", "Under Construction"},
			{"New Launch", "New Launch"},
		}},
		{Name: "Possession Date", Slug: "possession-date", Options: []TaxonomyOption{
			{"Immediate", "0"},
			{"Within 3 Months", "3"},
			{"Within 6 Months", "6"},
			{"Within 1 Year", "12"},
			{"Within 2 Years", "24"},
			{"Long Term (2+)", "25+"},
		}},
	}
}

// InitializeDefaultFilters loads DefaultTaxonomy.
func (s *FilterService) InitializeDefaultFilters(ctx context.Context) error {
	return s.EnsureTaxonomy(ctx, DefaultTaxonomy())
}

// EnsureTaxonomy upserts filters by slug and options by (filter, value).
// Rows that already exist are left as they are, so it can run on every boot.
func (s *FilterService) EnsureTaxonomy(ctx context.Context, entries []TaxonomyEntry) error {
	return internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, entry := range entries {
			if entry.Slug == "" {
				entry.Slug = slug.Make(entry.Name)
			}
			filter, err := findOrCreateFilter(tx, entry.Name, entry.Slug, entry.Type, i+1)
			if err != nil {
				return err
			}
			for j, opt := range entry.Options {
				if _, err := findOrCreateOption(tx, filter.ID, opt.Value, opt.Label, j+1); err != nil {
					return err
				}
			}
			log.Debug().Str("slug", entry.Slug).Int("options", len(entry.Options)).Msg("taxonomy filter ensured")
		}
		return nil
	})
}

func findOrCreateFilter(tx *gorm.DB, name, filterSlug string, filterType models.FilterType, sortOrder int) (*models.Filter, error) {
	if filterType == "" {
		filterType = models.FilterTypeSelect
	}
	filter := models.Filter{Name: name, Slug: filterSlug, Type: filterType, SortOrder: sortOrder}
	err := tx.Where(models.Filter{Slug: filterSlug}).Attrs(filter).FirstOrCreate(&filter).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure filter %s: %w", filterSlug, err)
	}
	return &filter, nil
}

func findOrCreateOption(tx *gorm.DB, filterID, value, label string, sortOrder int) (*models.FilterOption, error) {
	option := models.FilterOption{FilterID: filterID, Value: value, Label: label, SortOrder: sortOrder}
	err := tx.Where(models.FilterOption{FilterID: filterID, Value: value}).Attrs(option).FirstOrCreate(&option).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure option %q: %w", value, err)
	}
	return &option, nil
}

// ListFilters returns every filter with its options, both in sort order.
func (s *FilterService) ListFilters(ctx context.Context) ([]models.Filter, error) {
	var filters []models.Filter
	err := internal.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, label ASC")
		}).
		Order("sort_order ASC, name ASC").
		Find(&filters).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to list filters")
	}
	return filters, nil
}

// GetFiltersWithCounts annotates each option with how many properties carry it.
func (s *FilterService) GetFiltersWithCounts(ctx context.Context) ([]models.FilterWithCounts, error) {
	filters, err := s.ListFilters(ctx)
	if err != nil {
		return nil, err
	}

	type optionCount struct {
		FilterOptionID string
		Count          int64
	}
	var counts []optionCount
	err = internal.DB.WithContext(ctx).
		Table(models.PropertyFilterOptionTable).
		Select("filter_option_id, COUNT(*) AS count").
		Group("filter_option_id").
		Scan(&counts).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to count filter options")
	}
	byOption := make(map[string]int64, len(counts))
	for _, c := range counts {
		byOption[c.FilterOptionID] = c.Count
	}

	result := make([]models.FilterWithCounts, 0, len(filters))
	for _, f := range filters {
		withCounts := models.FilterWithCounts{Filter: f, Options: make([]models.FilterOptionCount, 0, len(f.Options))}
		for _, opt := range f.Options {
			withCounts.Options = append(withCounts.Options, models.FilterOptionCount{FilterOption: opt, Count: byOption[opt.ID]})
		}
		withCounts.Filter.Options = nil
		result = append(result, withCounts)
	}
	return result, nil
}

// GetFilter retrieves a filter by ID with its options
func (s *FilterService) GetFilter(ctx context.Context, id string) (*models.Filter, error) {
	var filter models.Filter
	err := internal.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, label ASC") }).
		First(&filter, "id = ?", id).Error
	if err != nil {
		return nil, lookupError(err, "filter")
	}
	return &filter, nil
}

// CreateFilter creates a new filter, deriving the slug from the name when none is given
func (s *FilterService) CreateFilter(ctx context.Context, req *CreateFilterRequest) (*models.Filter, error) {
	filterSlug := req.Slug
	if filterSlug == "" {
		filterSlug = slug.Make(req.Name)
	}

	// Check if slug already exists
	var count int64
	if err := internal.DB.WithContext(ctx).Model(&models.Filter{}).Where("slug = ?", filterSlug).Count(&count).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to create filter")
	}
	if count > 0 {
		return nil, utils.NewConflictError(fmt.Sprintf("filter with slug '%s' already exists", filterSlug))
	}

	filter := &models.Filter{
		Name:      strings.TrimSpace(req.Name),
		Slug:      filterSlug,
		Type:      req.Type,
		SortOrder: req.SortOrder,
	}
	if err := internal.DB.WithContext(ctx).Create(filter).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.NewConflictError(fmt.Sprintf("filter with slug '%s' already exists", filterSlug))
		}
		return nil, utils.WrapInternal(err, "failed to create filter")
	}
	return filter, nil
}

// UpdateFilter updates an existing filter
func (s *FilterService) UpdateFilter(ctx context.Context, id string, req *UpdateFilterRequest) (*models.Filter, error) {
	filter, err := s.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if len(updates) > 0 {
		if err := internal.DB.WithContext(ctx).Model(filter).Updates(updates).Error; err != nil {
			return nil, utils.WrapInternal(err, "failed to update filter")
		}
	}
	return s.GetFilter(ctx, id)
}

// DeleteFilter removes the filter, its options and every property tag using them.
func (s *FilterService) DeleteFilter(ctx context.Context, id string) error {
	if _, err := s.GetFilter(ctx, id); err != nil {
		return err
	}

	return internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var optionIDs []string
		if err := tx.Model(&models.FilterOption{}).Where("filter_id = ?", id).Pluck("id", &optionIDs).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete filter")
		}
		if err := propertyFilterOptionPivot.detachOther(tx, optionIDs...); err != nil {
			return utils.WrapInternal(err, "failed to delete filter")
		}
		if err := tx.Where("filter_id = ?", id).Delete(&models.FilterOption{}).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete filter options")
		}
		if err := tx.Delete(&models.Filter{}, "id = ?", id).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete filter")
		}
		return nil
	})
}

// CreateOption creates a new option under a filter
func (s *FilterService) CreateOption(ctx context.Context, filterID string, req *CreateFilterOptionRequest) (*models.FilterOption, error) {
	if _, err := s.GetFilter(ctx, filterID); err != nil {
		return nil, err
	}

	var count int64
	err := internal.DB.WithContext(ctx).Model(&models.FilterOption{}).
		Where("filter_id = ? AND value = ?", filterID, req.Value).
		Count(&count).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to create filter option")
	}
	if count > 0 {
		return nil, utils.NewConflictError(fmt.Sprintf("filter option with value '%s' already exists", req.Value))
	}

	option := &models.FilterOption{
		FilterID:  filterID,
		Label:     req.Label,
		Value:     req.Value,
		SortOrder: req.SortOrder,
	}
	if err := internal.DB.WithContext(ctx).Create(option).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to create filter option")
	}
	return option, nil
}

// GetOption retrieves a filter option by ID
func (s *FilterService) GetOption(ctx context.Context, id string) (*models.FilterOption, error) {
	var option models.FilterOption
	if err := internal.DB.WithContext(ctx).First(&option, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "filter option")
	}
	return &option, nil
}

// UpdateOption changes display fields only; the value is the matching key and stays fixed.
func (s *FilterService) UpdateOption(ctx context.Context, id string, req *UpdateFilterOptionRequest) (*models.FilterOption, error) {
	option, err := s.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Label != "" {
		option.Label = req.Label
	}
	if req.SortOrder != nil {
		option.SortOrder = *req.SortOrder
	}
	if err := internal.DB.WithContext(ctx).Save(option).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to update filter option")
	}
	return option, nil
}

// DeleteOption deletes a filter option and its property links
func (s *FilterService) DeleteOption(ctx context.Context, id string) error {
	if _, err := s.GetOption(ctx, id); err != nil {
		return err
	}
	return internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Unlink properties before removing the option
		if err := propertyFilterOptionPivot.detachOther(tx, id); err != nil {
			return utils.WrapInternal(err, "failed to delete filter option")
		}
		if err := tx.Delete(&models.FilterOption{}, "id = ?", id).Error; err != nil {
			return utils.WrapInternal(err, "failed to delete filter option")
		}
		return nil
	})
}
