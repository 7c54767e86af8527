package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"gorm.io/gorm"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.VerificationStatus
		want     bool
	}{
		{models.VerificationDraft, models.VerificationPending, true},
		{models.VerificationRejected, models.VerificationPending, true},
		{models.VerificationPending, models.VerificationPending, false},
		{models.VerificationVerified, models.VerificationPending, false},
		{models.VerificationPending, models.VerificationVerified, true},
		{models.VerificationVerified, models.VerificationVerified, false},
		{models.VerificationVerified, models.VerificationRejected, true},
		{models.VerificationRejected, models.VerificationRejected, false},
		{models.VerificationNone, models.VerificationVerified, true},
		{models.VerificationPending, models.VerificationDraft, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func newTestProjects(t *testing.T) *ProjectService {
	t.Helper()
	attachments := newTestAttachments(t)
	return NewProjectService(attachments)
}

func TestProjectLifecycle(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	builder := createUser(t, "Builder", models.VerificationVerified, models.RoleBuilder)

	rera := "P52100012345"
	project, err := svc.CreateProject(ctx, builder, &ProjectInput{Name: "Skyline", Location: "Pune", ReraNumber: &rera})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if project.VerificationStatus != models.VerificationDraft {
		t.Fatalf("new project status = %q, want draft", project.VerificationStatus)
	}

	_, err = svc.ApproveProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("approve draft: %v", err)
	}
	_, err = svc.SubmitProject(ctx, builder, project.ID)
	assertKind(t, err, utils.KindValidation)

	rejected, err := svc.RejectProject(ctx, project.ID, "RERA certificate missing")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.VerificationStatus != models.VerificationRejected || rejected.RejectionReason != "RERA certificate missing" {
		t.Errorf("rejected = %q (%q)", rejected.VerificationStatus, rejected.RejectionReason)
	}
	_, err = svc.RejectProject(ctx, project.ID, "again")
	assertKind(t, err, utils.KindValidation)

	submitted, err := svc.SubmitProject(ctx, builder, project.ID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if submitted.VerificationStatus != models.VerificationPending || submitted.RejectionReason != "" {
		t.Errorf("resubmitted = %q (%q)", submitted.VerificationStatus, submitted.RejectionReason)
	}

	approved, err := svc.ApproveProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.VerificationStatus != models.VerificationVerified {
		t.Errorf("approved status = %q", approved.VerificationStatus)
	}

	edited, err := svc.UpdateProject(ctx, builder, project.ID, &ProjectInput{Name: "Skyline Phase 2", Location: "Pune"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if edited.VerificationStatus != models.VerificationPending {
		t.Errorf("editing a verified project left status %q", edited.VerificationStatus)
	}
}

func TestProjectOwnership(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	owner := createUser(t, "Owner", models.VerificationVerified)
	other := createUser(t, "Other", models.VerificationVerified)
	project := createProject(t, owner, "Skyline", models.VerificationDraft)

	_, err := svc.SubmitProject(ctx, other, project.ID)
	assertKind(t, err, utils.KindAuthorization)
	_, err = svc.GetBuilderProject(ctx, other, project.ID)
	assertKind(t, err, utils.KindAuthorization)
	err = svc.DeleteProject(ctx, other, project.ID)
	assertKind(t, err, utils.KindAuthorization)
	_, err = svc.GetBuilderProject(ctx, owner, "missing")
	assertKind(t, err, utils.KindNotFound)
}

func TestCreateProjectDuplicateRera(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	builder := createUser(t, "Builder", models.VerificationVerified)

	rera := "P52100099999"
	if _, err := svc.CreateProject(ctx, builder, &ProjectInput{Name: "A", Location: "Pune", ReraNumber: &rera}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.CreateProject(ctx, builder, &ProjectInput{Name: "B", Location: "Pune", ReraNumber: &rera})
	assertKind(t, err, utils.KindValidation)
}

func TestDeleteProjectCascades(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	builder := createUser(t, "Builder", models.VerificationVerified)
	project := createProject(t, builder, "Skyline", models.VerificationVerified)

	property, err := NewPropertyService(svc.attachments, nil).CreateProperty(ctx, builder, &PropertyInput{Title: "Unit 1", Location: "Pune", BHK: "2", ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	if _, err := NewLeadService(NewStatisticsService()).CreateLead(ctx, project.ID, &LeadInput{Name: "Ravi", Phone: "+919812345678"}); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	docs := []FileUpload{{Name: "approval.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")}}
	if _, err := svc.AddDocuments(ctx, builder, project.ID, models.GroupDocument, docs); err != nil {
		t.Fatalf("add documents: %v", err)
	}

	if err := svc.DeleteProject(ctx, builder, project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	counts := map[string]int64{}
	var n int64
	internal.DB.Model(&models.Property{}).Where("project_id = ?", project.ID).Count(&n)
	counts["properties"] = n
	internal.DB.Model(&models.Lead{}).Where("project_id = ?", project.ID).Count(&n)
	counts["leads"] = n
	internal.DB.Model(&models.Attachment{}).Where("owner_id IN ?", []string{project.ID, property.ID}).Count(&n)
	counts["attachments"] = n
	counts["tags"] = pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID)
	for name, c := range counts {
		if c != 0 {
			t.Errorf("%s left = %d", name, c)
		}
	}
}

func TestDeleteProjectRollsBackOnFailure(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	builder := createUser(t, "Builder", models.VerificationVerified)
	project := createProject(t, builder, "Skyline", models.VerificationVerified)

	properties := NewPropertyService(svc.attachments, nil)
	property, err := properties.CreateProperty(ctx, builder, &PropertyInput{Title: "Unit 1", Location: "Pune", BHK: "2", ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	photos := []FileUpload{{Name: "front.jpg", ContentType: "image/jpeg", Size: 3, Reader: strings.NewReader("jpg")}}
	stored, err := properties.AddPhotos(ctx, builder, property.ID, photos)
	if err != nil {
		t.Fatalf("add photos: %v", err)
	}
	tags := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID)

	// Fail the last step of the cascade.
	err = internal.DB.Callback().Delete().Before("gorm:delete").Register("test:fail_project_delete", func(db *gorm.DB) {
		if db.Statement.Table == "projects" {
			db.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if err := svc.DeleteProject(ctx, builder, project.ID); err == nil {
		t.Fatal("delete succeeded, want error")
	}

	var n int64
	internal.DB.Model(&models.Property{}).Where("id = ?", property.ID).Count(&n)
	if n != 1 {
		t.Errorf("property rows = %d, want 1", n)
	}
	if got := pivotCount(t, models.PropertyFilterOptionTable, "property_id", property.ID); got != tags {
		t.Errorf("tags = %d, want %d", got, tags)
	}
	internal.DB.Model(&models.Attachment{}).Where("owner_id = ?", property.ID).Count(&n)
	if n != 1 {
		t.Errorf("attachment rows = %d, want 1", n)
	}
	rc, err := svc.attachments.Open(ctx, &stored[0])
	if err != nil {
		t.Fatalf("stored photo was removed: %v", err)
	}
	rc.Close()
}

func TestAdminListProjectsOrder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestProjects(t)
	builder := createUser(t, "Builder", models.VerificationVerified)

	createProject(t, builder, "Verified", models.VerificationVerified)
	createProject(t, builder, "Rejected", models.VerificationRejected)
	createProject(t, builder, "Draft", models.VerificationDraft)
	createProject(t, builder, "Pending", models.VerificationPending)

	page, err := svc.AdminListProjects(ctx, "", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Pending", "Draft", "Verified", "Rejected"}
	if len(page.Data) != len(want) {
		t.Fatalf("projects = %d, want %d", len(page.Data), len(want))
	}
	for i, p := range page.Data {
		if p.Name != want[i] {
			t.Errorf("position %d = %s, want %s", i, p.Name, want[i])
		}
	}

	page, err = svc.AdminListProjects(ctx, "PENDING", 1)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if page.Total != 1 || page.Data[0].Name != "Pending" {
		t.Errorf("pending filter returned %d projects", page.Total)
	}
}
