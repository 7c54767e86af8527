package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/config"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *capturingNotifier) SendOTP(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[phone] = code
	return nil
}

func (n *capturingNotifier) code(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[phone]
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestAuth(t *testing.T) (*AuthService, *capturingNotifier, *fakeClock) {
	t.Helper()
	notifier := &capturingNotifier{}
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(config.AuthConfig{JWTSecret: "test-secret", OTPTTL: 10 * time.Minute}, notifier)
	svc.now = clock.now
	return svc, notifier, clock
}

const testPhone = "+919876543210"

func TestRegisterAndVerifyOTP(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, notifier, _ := newTestAuth(t)

	res, err := svc.Register(ctx, &RegisterRequest{Name: "Asha", Phone: testPhone})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Phone != testPhone {
		t.Errorf("phone = %q", res.Phone)
	}
	code := notifier.code(testPhone)
	if len(code) != 6 {
		t.Fatalf("otp = %q, want 6 digits", code)
	}

	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: wrongCode(code)})
	assertKind(t, err, utils.KindBadRequest)

	auth, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: code})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if auth.Token == "" || !auth.User.IsPhoneVerified {
		t.Errorf("verify result = %+v", auth)
	}

	user, _, err := svc.Authenticate(ctx, auth.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != auth.User.ID {
		t.Errorf("authenticated %s, want %s", user.ID, auth.User.ID)
	}

	// the code is single use
	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: code})
	assertKind(t, err, utils.KindBadRequest)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestVerifyOTPExpiryBoundary(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, notifier, clock := newTestAuth(t)
	start := clock.t

	if _, err := svc.Register(ctx, &RegisterRequest{Phone: testPhone}); err != nil {
		t.Fatalf("register: %v", err)
	}
	code := notifier.code(testPhone)

	clock.t = start.Add(10 * time.Minute)
	_, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: code})
	assertKind(t, err, utils.KindBadRequest)
	if appErr, ok := err.(*utils.AppError); !ok || appErr.Message != "OTP expired. Request a new one." {
		t.Errorf("error = %v, want expiry message", err)
	}

	clock.t = start.Add(10*time.Minute - time.Second)
	if _, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: code}); err != nil {
		t.Errorf("one second before expiry: %v", err)
	}
}

func TestRegisterReissuesCodeUntilVerified(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, notifier, _ := newTestAuth(t)

	if _, err := svc.Register(ctx, &RegisterRequest{Phone: testPhone}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, &RegisterRequest{Phone: testPhone, Name: "Asha"}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	var users int64
	internal.DB.Model(&models.User{}).Where("phone = ?", testPhone).Count(&users)
	if users != 1 {
		t.Fatalf("users = %d, want 1", users)
	}

	if _, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: notifier.code(testPhone)}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, err := svc.Register(ctx, &RegisterRequest{Phone: testPhone})
	assertKind(t, err, utils.KindValidation)
}

func TestRegisterRejectsMismatchedPassword(t *testing.T) {
	setupTestDB(t)
	svc, _, _ := newTestAuth(t)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Phone: testPhone, Password: "secret1", PasswordConfirmation: "secret2",
	})
	assertKind(t, err, utils.KindValidation)
}

func TestLoginRevokesEarlierTokens(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, notifier, _ := newTestAuth(t)

	_, err := svc.Register(ctx, &RegisterRequest{
		Phone: testPhone, Email: "asha@example.com", Password: "secret1", PasswordConfirmation: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	verified, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Phone: testPhone, OTP: notifier.code(testPhone)})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	first, err := svc.Login(ctx, &LoginRequest{Phone: testPhone, Password: "secret1"})
	if err != nil {
		t.Fatalf("login by phone: %v", err)
	}
	second, err := svc.Login(ctx, &LoginRequest{Email: "asha@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login by email: %v", err)
	}

	for name, token := range map[string]string{"otp": verified.Token, "first": first.Token} {
		if _, _, err := svc.Authenticate(ctx, token); !utils.IsKind(err, utils.KindAuthentication) {
			t.Errorf("%s token still valid: %v", name, err)
		}
	}
	_, token, err := svc.Authenticate(ctx, second.Token)
	if err != nil {
		t.Fatalf("latest token: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, second.Token); !utils.IsKind(err, utils.KindAuthentication) {
		t.Errorf("token valid after logout: %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, _, _ := newTestAuth(t)

	if _, err := svc.Register(ctx, &RegisterRequest{Phone: testPhone, Password: "secret1", PasswordConfirmation: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		req  LoginRequest
		kind utils.ErrorKind
	}{
		{"wrong password", LoginRequest{Phone: testPhone, Password: "nope"}, utils.KindAuthentication},
		{"unknown phone", LoginRequest{Phone: "+910000000000", Password: "secret1"}, utils.KindAuthentication},
		{"no identifier", LoginRequest{Password: "secret1"}, utils.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, &tt.req)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	svc, _, clock := newTestAuth(t)
	if err := NewAuthzService(nil, 0).InitializeDefaultRoles(ctx); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	admin, err := svc.CreateAdmin(ctx, "Root", "root@example.com", "supersecret")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	res, err := svc.Login(ctx, &LoginRequest{Email: "root@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.User.HasRole(models.RoleSuperAdmin) || admin.VerificationStatus != models.VerificationVerified {
		t.Errorf("admin = %+v", res.User)
	}

	other := &AuthService{cfg: config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour}, notifier: LogNotifier{}, now: clock.now}
	if _, _, err := other.Authenticate(ctx, res.Token); !utils.IsKind(err, utils.KindAuthentication) {
		t.Errorf("token signed with another secret accepted: %v", err)
	}

	clock.t = clock.t.Add(31 * 24 * time.Hour)
	if _, _, err := svc.Authenticate(ctx, res.Token); !utils.IsKind(err, utils.KindAuthentication) {
		t.Errorf("expired token accepted: %v", err)
	}
}

func TestCreateAdminRequiresStrongPassword(t *testing.T) {
	setupTestDB(t)
	svc, _, _ := newTestAuth(t)

	_, err := svc.CreateAdmin(context.Background(), "Root", "root@example.com", "short")
	assertKind(t, err, utils.KindValidation)
}
