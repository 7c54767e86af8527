package services

import (
	"context"
	"errors"
	"testing"

	"keywe-backend/internal"
	"keywe-backend/internal/cache"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

func newTestPreferences(t *testing.T) *PreferenceService {
	t.Helper()
	svc := NewPreferenceService(cache.NewMemory(), 0, NewPropertyService(nil, nil))
	if err := svc.InitializeDefaultOptions(context.Background()); err != nil {
		t.Fatalf("seed options: %v", err)
	}
	return svc
}

func idsOf[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func validPreferences() *SavePreferencesRequest {
	return &SavePreferencesRequest{
		BudgetRangeID:     "budget_50l_1cr",
		PropertyTypeIDs:   []string{"ptype_new_projects"},
		BhkTypeIDs:        []string{"bhk_2", "bhk_3"},
		MoveInTimelineIDs: []string{"timeline_immediate"},
		NearbyLocationIDs: []string{"nearby_metro"},
		LocalityIDs:       []string{"locality_hsr"},
	}
}

func TestSavePreferencesReplacesRelations(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestPreferences(t)
	user := createUser(t, "Buyer", models.VerificationNone)

	if _, err := svc.SavePreferences(ctx, user, validPreferences()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	req := validPreferences()
	req.BhkTypeIDs = []string{"bhk_1"}
	req.LocalityIDs = []string{}
	req.NearbyLocationIDs = nil
	pref, err := svc.SavePreferences(ctx, user, req)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	bhks := idsOf(pref.BhkTypes, func(b models.BhkType) string { return b.ID })
	if len(bhks) != 1 || bhks[0] != "bhk_1" {
		t.Errorf("bhk types = %v, want [bhk_1]", bhks)
	}
	if len(pref.Localities) != 0 {
		t.Errorf("empty list should clear localities, got %d", len(pref.Localities))
	}
	if len(pref.NearbyLocations) != 1 {
		t.Errorf("omitted list should keep nearby locations, got %d", len(pref.NearbyLocations))
	}
	if pref.SearchRadiusKm != defaultSearchRadiusKm {
		t.Errorf("radius = %d, want default", pref.SearchRadiusKm)
	}
}

func TestSavePreferencesIsAtomic(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestPreferences(t)
	user := createUser(t, "Buyer", models.VerificationNone)

	if _, err := svc.SavePreferences(ctx, user, validPreferences()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	req := validPreferences()
	req.BudgetRangeID = "budget_2cr_plus"
	req.BhkTypeIDs = []string{"bhk_1"}
	req.LocalityIDs = []string{"locality_nowhere"}
	_, err := svc.SavePreferences(ctx, user, req)
	assertKind(t, err, utils.KindValidation)

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		if _, ok := appErr.Fields["locality_ids"]; !ok {
			t.Errorf("fields = %v, want locality_ids", appErr.Fields)
		}
	}

	pref, err := svc.GetPreferences(ctx, user)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pref.BudgetRangeID != "budget_50l_1cr" {
		t.Errorf("budget changed to %s", pref.BudgetRangeID)
	}
	if len(pref.BhkTypes) != 2 {
		t.Errorf("bhk types = %d, want the previous 2", len(pref.BhkTypes))
	}
}

func TestSavePreferencesRequiresLists(t *testing.T) {
	setupTestDB(t)
	svc := newTestPreferences(t)
	user := createUser(t, "Buyer", models.VerificationNone)

	req := validPreferences()
	req.BhkTypeIDs = nil
	_, err := svc.SavePreferences(context.Background(), user, req)
	assertKind(t, err, utils.KindValidation)
}

func TestGetPreferencesMissing(t *testing.T) {
	setupTestDB(t)
	svc := newTestPreferences(t)
	user := createUser(t, "Buyer", models.VerificationNone)

	_, err := svc.GetPreferences(context.Background(), user)
	assertKind(t, err, utils.KindNotFound)
}

func TestListOptionCatalogIsCached(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestPreferences(t)

	first, err := svc.ListOptionCatalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(first.BhkTypes) != 4 || len(first.BudgetRanges) != 4 || len(first.Localities) != 5 {
		t.Errorf("catalog sizes bhk=%d budget=%d localities=%d", len(first.BhkTypes), len(first.BudgetRanges), len(first.Localities))
	}
	if first.BhkTypes[0].ID != "bhk_1" {
		t.Errorf("bhk types not in sort order: %s first", first.BhkTypes[0].ID)
	}

	if err := internal.DB.Exec("DELETE FROM bhk_types").Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	cached, err := svc.ListOptionCatalog(ctx)
	if err != nil {
		t.Fatalf("cached catalog: %v", err)
	}
	if len(cached.BhkTypes) != 4 {
		t.Errorf("second read should come from cache, bhk types = %d", len(cached.BhkTypes))
	}

	// reseeding drops the cached copy
	if err := svc.InitializeDefaultOptions(ctx); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if err := internal.DB.Exec("DELETE FROM bhk_types WHERE id = ?", "bhk_1").Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	fresh, err := svc.ListOptionCatalog(ctx)
	if err != nil {
		t.Fatalf("fresh catalog: %v", err)
	}
	if len(fresh.BhkTypes) != 3 {
		t.Errorf("bhk types after reseed = %d, want 3", len(fresh.BhkTypes))
	}
}

func TestMatchingProperties(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestPreferences(t)
	buyer := createUser(t, "Buyer", models.VerificationNone)
	builder := createUser(t, "Builder", models.VerificationVerified)

	props := NewPropertyService(nil, nil)
	inputs := []PropertyInput{
		{Title: "Match", Location: "HSR Layout, Bangalore", BHK: "2", Price: 8_000_000},
		{Title: "Too pricey", Location: "HSR Layout, Bangalore", BHK: "2", Price: 25_000_000},
		{Title: "Wrong size", Location: "HSR Layout, Bangalore", BHK: "1", Price: 8_000_000},
		{Title: "Wrong area", Location: "Whitefield, Bangalore", BHK: "3", Price: 8_000_000},
	}
	for i := range inputs {
		if _, err := props.CreateProperty(ctx, builder, &inputs[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.SavePreferences(ctx, buyer, validPreferences()); err != nil {
		t.Fatalf("save: %v", err)
	}

	page, err := svc.MatchingProperties(ctx, buyer, 1)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Title != "Match" {
		t.Errorf("matches = %v", titles(page))
	}
}

func TestUpsertPreferenceKeepsOneRowPerUser(t *testing.T) {
	setupTestDB(t)
	user := createUser(t, "Racer", models.VerificationNone)

	// A concurrent first save already inserted the row.
	lat := 12.97
	existing := models.UserPreference{UserID: user.ID, BudgetRangeID: "budget_under_50l", SearchRadiusKm: 25, Latitude: &lat}
	if err := internal.DB.Create(&existing).Error; err != nil {
		t.Fatalf("seed preference: %v", err)
	}

	req := validPreferences()
	pref, err := upsertPreference(internal.DB, user.ID, req)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if pref.ID != existing.ID {
		t.Errorf("id = %s, want the existing %s", pref.ID, existing.ID)
	}
	if pref.BudgetRangeID != "budget_50l_1cr" {
		t.Errorf("budget = %s", pref.BudgetRangeID)
	}
	if pref.SearchRadiusKm != 25 || pref.Latitude == nil || *pref.Latitude != lat {
		t.Errorf("omitted scalars changed: radius %d latitude %v", pref.SearchRadiusKm, pref.Latitude)
	}

	var n int64
	internal.DB.Model(&models.UserPreference{}).Where("user_id = ?", user.ID).Count(&n)
	if n != 1 {
		t.Errorf("preference rows = %d, want 1", n)
	}

	other := createUser(t, "Fresh", models.VerificationNone)
	fresh, err := upsertPreference(internal.DB, other.ID, req)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if fresh.SearchRadiusKm != defaultSearchRadiusKm {
		t.Errorf("radius = %d, want default", fresh.SearchRadiusKm)
	}
}
