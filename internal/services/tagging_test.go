package services

import (
	"context"
	"sort"
	"testing"

	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

func newTaggedProperty(t *testing.T, owner *models.User) *models.Property {
	t.Helper()
	props := NewPropertyService(nil, NewStatisticsService())
	property, err := props.CreateProperty(context.Background(), owner, &PropertyInput{
		Title:        "Green Acres",
		Location:     "Wakad, Pune",
		BHK:          "2",
		PropertyType: "Apartment",
		Price:        7_500_000,
		CarpetArea:   950,
		FloorNumber:  3,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return property
}

func TestTagPropertyIsAdditiveAndIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, "Owner", models.VerificationVerified)
	property := newTaggedProperty(t, owner)

	derived := len(property.FilterOptions)
	if derived != 6 {
		t.Fatalf("derived tags = %d, want 6", derived)
	}

	if _, err := NewTaggingService().TagProperty(ctx, property); err != nil {
		t.Fatalf("retag: %v", err)
	}
	if n := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID); n != int64(derived) {
		t.Errorf("tags after retag = %d, want %d", n, derived)
	}
}

func TestTagPropertyLabels(t *testing.T) {
	setupTestDB(t)
	owner := createUser(t, "Owner", models.VerificationVerified)
	property := newTaggedProperty(t, owner)

	labels := map[string]string{}
	for _, o := range property.FilterOptions {
		labels[o.Value] = o.Label
	}
	want := map[string]string{
		"2":       "2",
		"7500000": "₹ 75 L",
		"950":     "950 sqft",
		"3":       "3rd Floor",
	}
	for value, label := range want {
		if labels[value] != label {
			t.Errorf("label for %q = %q, want %q", value, labels[value], label)
		}
	}
}

func TestSyncPropertyFilterOptionsReplaces(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, "Owner", models.VerificationVerified)
	property := newTaggedProperty(t, owner)
	svc := NewTaggingService()

	keep := []string{property.FilterOptions[0].ID, property.FilterOptions[1].ID}
	options, err := svc.SyncPropertyFilterOptions(ctx, owner, property.ID, keep)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	got := make([]string, 0, len(options))
	for _, o := range options {
		got = append(got, o.ID)
	}
	sort.Strings(got)
	sort.Strings(keep)
	if len(got) != 2 || got[0] != keep[0] || got[1] != keep[1] {
		t.Errorf("tags = %v, want %v", got, keep)
	}

	if _, err := svc.SyncPropertyFilterOptions(ctx, owner, property.ID, []string{}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID); n != 0 {
		t.Errorf("tags after clear = %d, want 0", n)
	}
}

func TestSyncPropertyFilterOptionsRejectsUnknownIDs(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, "Owner", models.VerificationVerified)
	property := newTaggedProperty(t, owner)

	before := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID)
	_, err := NewTaggingService().SyncPropertyFilterOptions(ctx, owner, property.ID, []string{"missing-option"})
	assertKind(t, err, utils.KindValidation)

	if after := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID); after != before {
		t.Errorf("tags changed on failure: %d -> %d", before, after)
	}
}

func TestSyncPropertyFilterOptionsRequiresOwner(t *testing.T) {
	setupTestDB(t)
	owner := createUser(t, "Owner", models.VerificationVerified)
	other := createUser(t, "Other", models.VerificationVerified)
	property := newTaggedProperty(t, owner)

	_, err := NewTaggingService().SyncPropertyFilterOptions(context.Background(), other, property.ID, nil)
	assertKind(t, err, utils.KindAuthorization)
}
