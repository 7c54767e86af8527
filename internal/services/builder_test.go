package services

import (
	"context"
	"strings"
	"testing"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

func kycFile(name string) FileUpload {
	return FileUpload{Name: name, ContentType: "application/pdf", Size: 8, Reader: strings.NewReader("%PDF-1.4")}
}

func validBuilderRequest() *BuilderRegisterRequest {
	return &BuilderRegisterRequest{
		Name:                 "Mehta Constructions",
		Email:                "Sales@Mehta.example",
		CompanyName:          "Mehta Constructions Pvt Ltd",
		Password:             "builder123",
		PasswordConfirmation: "builder123",
	}
}

func newTestBuilders(t *testing.T) *BuilderService {
	t.Helper()
	if err := NewAuthzService(nil, 0).InitializeDefaultRoles(context.Background()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return NewBuilderService(newTestAttachments(t))
}

func TestRegisterBuilder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestBuilders(t)

	user, err := svc.RegisterBuilder(ctx, validBuilderRequest(), []FileUpload{kycFile("pan.pdf"), kycFile("gst.pdf")})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.VerificationStatus != models.VerificationPending {
		t.Errorf("status = %q, want pending", user.VerificationStatus)
	}
	if *user.Email != "sales@mehta.example" {
		t.Errorf("email = %q, want lower-cased", *user.Email)
	}
	if len(user.Attachments) != 2 || user.Attachments[0].URL == "" {
		t.Errorf("attachments = %+v", user.Attachments)
	}

	loaded, err := svc.GetBuilder(ctx, user.ID)
	if err != nil {
		t.Fatalf("get builder: %v", err)
	}
	if !loaded.HasRole(models.RoleBuilder) || !loaded.IsUnverifiedBuilder() {
		t.Errorf("loaded builder roles = %+v status %q", loaded.Roles, loaded.VerificationStatus)
	}

	_, err = svc.RegisterBuilder(ctx, validBuilderRequest(), []FileUpload{kycFile("pan.pdf")})
	assertKind(t, err, utils.KindValidation)
}

func TestRegisterBuilderValidatesDocuments(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestBuilders(t)

	tests := []struct {
		name  string
		files []FileUpload
	}{
		{"no documents", nil},
		{"wrong type", []FileUpload{{Name: "notes.txt", Size: 3, Reader: strings.NewReader("txt")}}},
		{"too large", []FileUpload{{Name: "scan.pdf", Size: 6 << 20, Reader: strings.NewReader("")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterBuilder(ctx, validBuilderRequest(), tt.files)
			assertKind(t, err, utils.KindValidation)
		})
	}

	var users int64
	internal.DB.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Errorf("users created = %d", users)
	}
}

func TestBuilderReview(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc := newTestBuilders(t)

	user, err := svc.RegisterBuilder(ctx, validBuilderRequest(), []FileUpload{kycFile("pan.pdf")})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rejected, err := svc.RejectBuilder(ctx, user.ID, "blurry PAN card")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.RejectionReason != "blurry PAN card" {
		t.Errorf("reason = %q", rejected.RejectionReason)
	}

	if _, err := svc.UploadKYC(ctx, rejected, []FileUpload{kycFile("pan-clear.pdf")}); err != nil {
		t.Fatalf("upload kyc: %v", err)
	}
	reloaded, err := svc.GetBuilder(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.VerificationStatus != models.VerificationPending || reloaded.RejectionReason != "" {
		t.Errorf("after re-upload status = %q reason = %q", reloaded.VerificationStatus, reloaded.RejectionReason)
	}
	if len(reloaded.Attachments) != 2 {
		t.Errorf("documents = %d, want 2", len(reloaded.Attachments))
	}

	approved, err := svc.ApproveBuilder(ctx, user.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.IsUnverifiedBuilder() {
		t.Error("approved builder still gated")
	}
	_, err = svc.ApproveBuilder(ctx, user.ID)
	assertKind(t, err, utils.KindValidation)

	page, err := svc.ListBuilders(ctx, "verified", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("verified builders = %d, want 1", page.Total)
	}
}

func TestGetBuilderIgnoresBuyers(t *testing.T) {
	setupTestDB(t)
	svc := newTestBuilders(t)
	buyer := createUser(t, "Buyer", models.VerificationNone)

	_, err := svc.GetBuilder(context.Background(), buyer.ID)
	assertKind(t, err, utils.KindNotFound)
}
