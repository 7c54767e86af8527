package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/cache"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	optionCatalogKey      = "preference-options"
	defaultSearchRadiusKm = 10
)

// SavePreferencesRequest is the buyer's full intent. Nil optional lists leave
// the stored relation untouched; an empty list clears it.
type SavePreferencesRequest struct {
	BudgetRangeID     string   `json:"budget_range_id" binding:"required"`
	SearchRadiusKm    *int     `json:"search_radius_km" binding:"omitempty,min=1,max=50"`
	Latitude          *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude         *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	PropertyTypeIDs   []string `json:"property_type_ids" binding:"required,min=1"`
	BhkTypeIDs        []string `json:"bhk_type_ids" binding:"required,min=1"`
	MoveInTimelineIDs []string `json:"move_in_timeline_ids" binding:"required,min=1"`
	NearbyLocationIDs []string `json:"nearby_location_ids"`
	LocalityIDs       []string `json:"locality_ids"`
}

// OptionCatalog holds every master list a preference form needs.
type OptionCatalog struct {
	BhkTypes        []models.BhkType        `json:"bhk_types"`
	BudgetRanges    []models.BudgetRange    `json:"budget_ranges"`
	PropertyTypes   []models.PropertyType   `json:"property_types"`
	MoveInTimelines []models.MoveInTimeline `json:"move_in_timelines"`
	NearbyLocations []models.NearbyLocation `json:"nearby_locations"`
	Localities      []models.Locality       `json:"localities"`
}

type PreferenceService struct {
	cache      cache.Cache
	ttl        time.Duration
	properties *PropertyService
}

func NewPreferenceService(c cache.Cache, ttl time.Duration, properties *PropertyService) *PreferenceService {
	if c == nil {
		c = cache.Noop{}
	}
	return &PreferenceService{cache: c, ttl: ttl, properties: properties}
}

// relationSpec ties a request list to its master table and pivot.
type relationSpec struct {
	field    string
	ids      []string
	required bool
	model    interface{}
	pivot    pivot
}

func (r *SavePreferencesRequest) relations() []relationSpec {
	return []relationSpec{
		{"property_type_ids", r.PropertyTypeIDs, true, &models.PropertyType{}, preferencePropertyTypes},
		{"bhk_type_ids", r.BhkTypeIDs, true, &models.BhkType{}, preferenceBhkTypes},
		{"move_in_timeline_ids", r.MoveInTimelineIDs, true, &models.MoveInTimeline{}, preferenceMoveInTimelines},
		{"nearby_location_ids", r.NearbyLocationIDs, false, &models.NearbyLocation{}, preferenceNearbyLocations},
		{"locality_ids", r.LocalityIDs, false, &models.Locality{}, preferenceLocalities},
	}
}

func (r *SavePreferencesRequest) checkRequired() error {
	fields := map[string][]string{}
	if strings.TrimSpace(r.BudgetRangeID) == "" {
		fields["budget_range_id"] = []string{"budget_range_id is required"}
	}
	for _, rel := range r.relations() {
		if rel.required && len(uniqueIDs(rel.ids)) == 0 {
			fields[rel.field] = []string{rel.field + " is required"}
		}
	}
	if r.SearchRadiusKm != nil && (*r.SearchRadiusKm < 1 || *r.SearchRadiusKm > 50) {
		fields["search_radius_km"] = []string{"search_radius_km must be between 1 and 50"}
	}
	if len(fields) > 0 {
		return utils.NewValidationError("The given data was invalid", fields)
	}
	return nil
}

// SavePreferences validates every referenced id, upserts the preference row
// keyed by user and fully replaces each relation. Everything happens in one
// transaction: on any error the previously stored preference is unchanged.
func (s *PreferenceService) SavePreferences(ctx context.Context, user *models.User, req *SavePreferencesRequest) (*models.UserPreference, error) {
	if err := req.checkRequired(); err != nil {
		return nil, err
	}

	err := internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invalid := map[string][]string{}
		missing, err := missingIDs(tx, &models.BudgetRange{}, []string{req.BudgetRangeID})
		if err != nil {
			return utils.WrapInternal(err, "failed to validate preferences")
		}
		if len(missing) > 0 {
			invalid["budget_range_id"] = missing
		}
		for _, rel := range req.relations() {
			missing, err := missingIDs(tx, rel.model, uniqueIDs(rel.ids))
			if err != nil {
				return utils.WrapInternal(err, "failed to validate preferences")
			}
			if len(missing) > 0 {
				invalid[rel.field] = missing
			}
		}
		if len(invalid) > 0 {
			return utils.InvalidIDs(invalid)
		}

		pref, err := upsertPreference(tx, user.ID, req)
		if err != nil {
			return utils.WrapInternal(err, "failed to save preferences")
		}

		for _, rel := range req.relations() {
			if rel.ids == nil {
				continue
			}
			if err := rel.pivot.sync(tx, pref.ID, rel.ids); err != nil {
				return utils.WrapInternal(err, "failed to save preferences")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("user_id", user.ID).Msg("preferences saved")
	return s.GetPreferences(ctx, user)
}

// upsertPreference inserts or updates the user's row in one statement keyed on
// the unique user_id, so two first saves for the same user cannot both insert.
// Optional scalars left nil keep their stored value on update.
func upsertPreference(tx *gorm.DB, userID string, req *SavePreferencesRequest) (*models.UserPreference, error) {
	radius := defaultSearchRadiusKm
	if req.SearchRadiusKm != nil {
		radius = *req.SearchRadiusKm
	}
	pref := models.UserPreference{
		UserID:         userID,
		BudgetRangeID:  req.BudgetRangeID,
		SearchRadiusKm: radius,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}

	columns := []string{"budget_range_id", "updated_at"}
	if req.SearchRadiusKm != nil {
		columns = append(columns, "search_radius_km")
	}
	if req.Latitude != nil {
		columns = append(columns, "latitude")
	}
	if req.Longitude != nil {
		columns = append(columns, "longitude")
	}

	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&pref).Error
	if err != nil {
		return nil, err
	}

	// On conflict the generated id was discarded; read back the stored row.
	var stored models.UserPreference
	if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetPreferences returns the user's preference with every relation loaded.
func (s *PreferenceService) GetPreferences(ctx context.Context, user *models.User) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := internal.DB.WithContext(ctx).
		Preload("BudgetRange").
		Preload("PropertyTypes", orderBy("property_types.name ASC")).
		Preload("BhkTypes", orderBy("bhk_types.sort_order ASC")).
		Preload("MoveInTimelines", orderBy("move_in_timelines.sort_order ASC")).
		Preload("NearbyLocations", orderBy("nearby_locations.label ASC")).
		Preload("Localities", orderBy("localities.name ASC")).
		Where("user_id = ?", user.ID).
		First(&pref).Error
	if err != nil {
		return nil, lookupError(err, "preferences")
	}
	return &pref, nil
}

func orderBy(order string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order) }
}

// ListOptionCatalog returns every master list, cached when a cache is configured.
func (s *PreferenceService) ListOptionCatalog(ctx context.Context) (*OptionCatalog, error) {
	var catalog OptionCatalog
	if found, err := s.cache.Get(ctx, optionCatalogKey, &catalog); err != nil {
		log.Warn().Err(err).Msg("option catalog cache read failed")
	} else if found {
		return &catalog, nil
	}

	db := internal.DB.WithContext(ctx)
	queries := []struct {
		name string
		run  func() error
	}{
		{"bhk types", func() error { return db.Order("sort_order ASC").Find(&catalog.BhkTypes).Error }},
		{"budget ranges", func() error { return db.Order("sort_order ASC").Find(&catalog.BudgetRanges).Error }},
		{"property types", func() error { return db.Where("is_active = ?", true).Order("name ASC").Find(&catalog.PropertyTypes).Error }},
		{"move-in timelines", func() error { return db.Order("sort_order ASC").Find(&catalog.MoveInTimelines).Error }},
		{"nearby locations", func() error { return db.Order("label ASC").Find(&catalog.NearbyLocations).Error }},
		{"localities", func() error { return db.Order("name ASC").Find(&catalog.Localities).Error }},
	}
	for _, q := range queries {
		if err := q.run(); err != nil {
			return nil, utils.WrapInternal(err, "failed to load "+q.name)
		}
	}

	if err := s.cache.Set(ctx, optionCatalogKey, &catalog, s.ttl); err != nil {
		log.Warn().Err(err).Msg("option catalog cache write failed")
	}
	return &catalog, nil
}

// InitializeDefaultOptions upserts the master lists by id and drops the cached catalog.
func (s *PreferenceService) InitializeDefaultOptions(ctx context.Context) error {
	db := internal.DB.WithContext(ctx)
	upsert := func(rows interface{}, columns ...string) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(rows).Error
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"bhk types", func() error {
			return upsert([]models.BhkType{
				{ID: "bhk_1", Label: "1 BHK", SortOrder: 1},
				{ID: "bhk_2", Label: "2 BHK", SortOrder: 2},
				{ID: "bhk_3", Label: "3 BHK", SortOrder: 3},
				{ID: "bhk_villa_plot", Label: "Villa / Plot", SortOrder: 4},
			}, "label", "sort_order")
		}},
		{"move-in timelines", func() error {
			return upsert([]models.MoveInTimeline{
				{ID: "timeline_immediate", Label: "Immediately", SortOrder: 1},
				{ID: "timeline_3_6", Label: "3-6 months", SortOrder: 2},
				{ID: "timeline_6_12", Label: "6-12 months", SortOrder: 3},
				{ID: "timeline_exploring", Label: "Just exploring", SortOrder: 4},
			}, "label", "sort_order")
		}},
		{"nearby locations", func() error {
			return upsert([]models.NearbyLocation{
				{ID: "nearby_work", Label: "Near work", Icon: "briefcase"},
				{ID: "nearby_school", Label: "Near school", Icon: "school"},
				{ID: "nearby_metro", Label: "Near metro", Icon: "train"},
				{ID: "nearby_quiet", Label: "Quiet area", Icon: "tree"},
				{ID: "nearby_investment", Label: "Investment hotspot", Icon: "trending-up"},
			}, "label", "icon")
		}},
		{"budget ranges", func() error {
			return upsert([]models.BudgetRange{
				{ID: "budget_under_50l", Label: "Under ₹50L", MinPrice: 0, MaxPrice: 5_000_000, SortOrder: 1},
				{ID: "budget_50l_1cr", Label: "₹50L - ₹1Cr", MinPrice: 5_000_000, MaxPrice: 10_000_000, SortOrder: 2},
				{ID: "budget_1cr_2cr", Label: "₹1Cr - ₹2Cr", MinPrice: 10_000_000, MaxPrice: 20_000_000, SortOrder: 3},
				{ID: "budget_2cr_plus", Label: "₹2Cr+", MinPrice: 20_000_000, MaxPrice: 9_999_999_999, SortOrder: 4},
			}, "label", "min_price", "max_price", "sort_order")
		}},
		{"localities", func() error {
			return upsert([]models.Locality{
				{ID: "locality_indiranagar", Name: "Indiranagar", City: "Bangalore"},
				{ID: "locality_hsr", Name: "HSR Layout", City: "Bangalore"},
				{ID: "locality_jp_nagar", Name: "JP Nagar", City: "Bangalore"},
				{ID: "locality_whitefield", Name: "Whitefield", City: "Bangalore"},
				{ID: "locality_koramangala", Name: "Koramangala", City: "Bangalore"},
			}, "name", "city")
		}},
		{"property types", func() error {
			return upsert([]models.PropertyType{
				{ID: "ptype_new_projects", Name: "New Projects", Slug: "new-projects", IsActive: true},
				{ID: "ptype_resale", Name: "Resale", Slug: "resale", IsActive: true},
				{ID: "ptype_rentals", Name: "Rentals", Slug: "rentals", IsActive: true},
			}, "name", "slug", "is_active")
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return utils.WrapInternal(err, "failed to seed "+step.name)
		}
	}
	return s.cache.Delete(ctx, optionCatalogKey)
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// MatchingProperties lists properties that fit the user's stored intent:
// price inside the budget range, a preferred BHK (or villa/plot type) and,
// when localities were chosen, a location naming one of them.
func (s *PreferenceService) MatchingProperties(ctx context.Context, user *models.User, page int) (*Page[models.Property], error) {
	pref, err := s.GetPreferences(ctx, user)
	if err != nil {
		return nil, err
	}

	q := PropertyQuery{Page: page}
	if pref.BudgetRange != nil {
		min, max := pref.BudgetRange.MinPrice, pref.BudgetRange.MaxPrice
		q.MinPrice, q.MaxPrice = &min, &max
	}
	for _, bhk := range pref.BhkTypes {
		if m := leadingNumber.FindStringSubmatch(bhk.Label); m != nil {
			q.BHKs = append(q.BHKs, m[1])
			continue
		}
		for _, part := range strings.Split(bhk.Label, "/") {
			if t := strings.TrimSpace(part); t != "" {
				q.PropertyTypes = append(q.PropertyTypes, t)
			}
		}
	}
	for _, l := range pref.Localities {
		q.Localities = append(q.Localities, l.Name)
	}
	return s.properties.ListProperties(ctx, q)
}
