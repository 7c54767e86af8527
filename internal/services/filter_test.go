package services

import (
	"context"
	"testing"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

func TestInitializeDefaultFiltersIsIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := NewFilterService()

	if err := svc.InitializeDefaultFilters(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	var filters, options int64
	internal.DB.Model(&models.Filter{}).Count(&filters)
	internal.DB.Model(&models.FilterOption{}).Count(&options)

	if err := svc.InitializeDefaultFilters(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var filtersAgain, optionsAgain int64
	internal.DB.Model(&models.Filter{}).Count(&filtersAgain)
	internal.DB.Model(&models.FilterOption{}).Count(&optionsAgain)

	if filters != int64(len(DefaultTaxonomy())) {
		t.Errorf("filters = %d, want %d", filters, len(DefaultTaxonomy()))
	}
	if filtersAgain != filters || optionsAgain != options {
		t.Errorf("reseed changed counts: filters %d -> %d, options %d -> %d", filters, filtersAgain, options, optionsAgain)
	}
}

func TestEnsureTaxonomyKeepsExistingLabels(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := NewFilterService()

	entry := TaxonomyEntry{Name: "Facing", Options: []TaxonomyOption{{"East", "east"}}}
	if err := svc.EnsureTaxonomy(ctx, []TaxonomyEntry{entry}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	entry.Options[0].Label = "East Facing"
	if err := svc.EnsureTaxonomy(ctx, []TaxonomyEntry{entry}); err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	var option models.FilterOption
	if err := internal.DB.Where("value = ?", "east").First(&option).Error; err != nil {
		t.Fatalf("load option: %v", err)
	}
	if option.Label != "East" {
		t.Errorf("label = %q, want the first seeded label", option.Label)
	}

	var filter models.Filter
	if err := internal.DB.First(&filter, "id = ?", option.FilterID).Error; err != nil {
		t.Fatalf("load filter: %v", err)
	}
	if filter.Slug != "facing" {
		t.Errorf("slug = %q, want facing", filter.Slug)
	}
}

func TestCreateFilterRejectsDuplicateSlug(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := NewFilterService()

	if _, err := svc.CreateFilter(ctx, &CreateFilterRequest{Name: "Amenities"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.CreateFilter(ctx, &CreateFilterRequest{Name: "amenities"})
	assertKind(t, err, utils.KindConflict)
}

func TestDeleteFilterRemovesTags(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := NewFilterService()
	props := NewPropertyService(nil, NewStatisticsService())
	builder := createUser(t, "Owner", models.VerificationVerified)

	property, err := props.CreateProperty(ctx, builder, &PropertyInput{Title: "Lake View", Location: "Pune", BHK: "2"})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}

	var bhk models.Filter
	if err := internal.DB.Where("slug = ?", "bhk").First(&bhk).Error; err != nil {
		t.Fatalf("load bhk filter: %v", err)
	}
	if err := svc.DeleteFilter(ctx, bhk.ID); err != nil {
		t.Fatalf("delete filter: %v", err)
	}

	var remaining int64
	internal.DB.Table(models.PropertyFilterOptionTable).
		Joins("JOIN filter_options ON filter_options.id = property_filter_option.filter_option_id").
		Where("property_filter_option.property_id = ? AND filter_options.filter_id = ?", property.ID, bhk.ID).
		Count(&remaining)
	if remaining != 0 {
		t.Errorf("bhk tags left = %d", remaining)
	}
	if n := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID); n != 1 {
		t.Errorf("location tag should survive, tags = %d", n)
	}
}

func TestGetFiltersWithCounts(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := NewFilterService()
	props := NewPropertyService(nil, NewStatisticsService())
	builder := createUser(t, "Owner", models.VerificationVerified)

	for _, title := range []string{"A", "B"} {
		if _, err := props.CreateProperty(ctx, builder, &PropertyInput{Title: title, Location: "Pune", BHK: "3"}); err != nil {
			t.Fatalf("create property: %v", err)
		}
	}

	filters, err := svc.GetFiltersWithCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	var found bool
	for _, f := range filters {
		if f.Slug != "bhk" {
			continue
		}
		for _, opt := range f.Options {
			if opt.Value == "3" {
				found = true
				if opt.Count != 2 {
					t.Errorf("count = %d, want 2", opt.Count)
				}
			}
		}
	}
	if !found {
		t.Fatal("bhk option 3 missing")
	}
}
