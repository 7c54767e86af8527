package services

import (
	"context"
	"strconv"
	"strings"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// tagMapping derives one facet from one property column.
type tagMapping struct {
	filterName string
	// extract returns the raw value and display label, ok=false when the column is empty.
	extract func(p *models.Property) (value, label string, ok bool)
}

func stringColumn(get func(p *models.Property) string) func(p *models.Property) (string, string, bool) {
	return func(p *models.Property) (string, string, bool) {
		v := strings.TrimSpace(get(p))
		if v == "" {
			return "", "", false
		}
		return v, utils.UpperFirst(v), true
	}
}

// propertyTagMappings lists the columns that become filter tags, in display order.
var propertyTagMappings = []tagMapping{
	{"BHK", stringColumn(func(p *models.Property) string { return p.BHK })},
	{"Property Type", stringColumn(func(p *models.Property) string { return p.PropertyType })},
	{"Location", stringColumn(func(p *models.Property) string { return p.Location })},
	{"Construction Status", stringColumn(func(p *models.Property) string { return p.ConstructionStatus })},
	{"Possession Date", stringColumn(func(p *models.Property) string { return p.PossessionDate })},
	{"Financing", stringColumn(func(p *models.Property) string { return p.FinancingOption })},
	{"Floor", func(p *models.Property) (string, string, bool) {
		if p.FloorNumber == 0 {
			return "", "", false
		}
		return strconv.Itoa(p.FloorNumber), utils.FloorLabel(p.FloorNumber), true
	}},
	{"Carpet Area", func(p *models.Property) (string, string, bool) {
		if p.CarpetArea == 0 {
			return "", "", false
		}
		return strconv.Itoa(p.CarpetArea), utils.AreaLabel(p.CarpetArea), true
	}},
	{"Price", func(p *models.Property) (string, string, bool) {
		if p.Price == 0 {
			return "", "", false
		}
		return strconv.FormatInt(p.Price, 10), utils.FormatPrice(p.Price), true
	}},
}

// TaggingService links properties to filter options.
//
// Two write modes exist and must not be confused:
//   - TagProperty attaches derived tags. It only ever adds links.
//   - SyncPropertyFilterOptions replaces the whole tag set with the caller's list.
type TaggingService struct{}

func NewTaggingService() *TaggingService {
	return &TaggingService{}
}

// TagProperty derives tags from the property's own columns and attaches them.
func (s *TaggingService) TagProperty(ctx context.Context, property *models.Property) ([]models.FilterOption, error) {
	var options []models.FilterOption
	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		options, err = tagProperty(tx, property)
		return err
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to tag property")
	}
	return options, nil
}

func tagProperty(tx *gorm.DB, property *models.Property) ([]models.FilterOption, error) {
	options := make([]models.FilterOption, 0, len(propertyTagMappings))
	for i, m := range propertyTagMappings {
		value, label, ok := m.extract(property)
		if !ok {
			continue
		}
		filter, err := findOrCreateFilter(tx, m.filterName, slug.Make(m.filterName), models.FilterTypeSelect, i+1)
		if err != nil {
			return nil, err
		}
		option, err := findOrCreateOption(tx, filter.ID, value, label, 0)
		if err != nil {
			return nil, err
		}
		options = append(options, *option)
	}

	ids := make([]string, len(options))
	for i, o := range options {
		ids[i] = o.ID
	}
	if err := propertyFilterOptionPivot.attach(tx, property.ID, ids); err != nil {
		return nil, err
	}
	return options, nil
}

// TagAllProperties re-derives tags for every property in batches. Returns the number processed.
func (s *TaggingService) TagAllProperties(ctx context.Context) (int, error) {
	var processed int
	var batch []models.Property
	result := internal.DB.WithContext(ctx).Order("created_at ASC").FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if _, err := s.TagProperty(ctx, &batch[i]); err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	if result.Error != nil {
		return processed, result.Error
	}
	log.Info().Int("properties", processed).Msg("property tags rebuilt")
	return processed, nil
}

// SyncPropertyFilterOptions sets the property's tags to exactly optionIDs.
// Only the owning builder may do this.
func (s *TaggingService) SyncPropertyFilterOptions(ctx context.Context, actor *models.User, propertyID string, optionIDs []string) ([]models.FilterOption, error) {
	db := internal.DB.WithContext(ctx)

	var property models.Property
	if err := db.First(&property, "id = ?", propertyID).Error; err != nil {
		return nil, lookupError(err, "property")
	}
	if property.PartnerID != actor.ID {
		return nil, utils.NewAuthorizationError("You do not own this property")
	}

	optionIDs = uniqueIDs(optionIDs)
	if missing, err := missingIDs(db, &models.FilterOption{}, optionIDs); err != nil {
		return nil, utils.WrapInternal(err, "failed to validate filter options")
	} else if len(missing) > 0 {
		return nil, utils.InvalidIDs(map[string][]string{"filter_option_ids": missing})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return propertyFilterOptionPivot.sync(tx, property.ID, optionIDs)
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to update property tags")
	}

	var options []models.FilterOption
	if err := db.Model(&property).Association("FilterOptions").Find(&options); err != nil {
		return nil, utils.WrapInternal(err, "failed to load property tags")
	}
	return options, nil
}

// missingIDs returns the ids that have no row in model's table.
func missingIDs(tx *gorm.DB, model interface{}, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
