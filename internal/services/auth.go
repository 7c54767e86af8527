package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/config"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Notifier delivers one-time codes to a phone number.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogNotifier writes codes to the application log. Used until an SMS gateway is configured.
type LogNotifier struct{}

// SendOTP logs the code instead of sending an SMS
func (LogNotifier) SendOTP(_ context.Context, phone, code string) error {
	log.Info().Str("phone", phone).Str("otp", code).Msg("[OTP SERVICE] sending OTP")
	return nil
}

type RegisterRequest struct {
	Name                 string `json:"name" binding:"omitempty,max=255"`
	Email                string `json:"email" binding:"omitempty,email,max=191"`
	Phone                string `json:"phone" binding:"required,phone"`
	Password             string `json:"password" binding:"omitempty,min=6"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone" binding:"omitempty"`
	Password string `json:"password" binding:"required"`
}

type RegisterResult struct {
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

type AuthResult struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// UserProfile is the shape returned by GET /v1/user.
type UserProfile struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Email              *string                   `json:"email"`
	Phone              *string                   `json:"phone"`
	Role               string                    `json:"role"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	IsPhoneVerified    bool                      `json:"is_phone_verified"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

type AuthService struct {
	cfg      config.AuthConfig
	notifier Notifier
	now      func() time.Time
}

func NewAuthService(cfg config.AuthConfig, notifier Notifier) *AuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	return &AuthService{cfg: cfg, notifier: notifier, now: time.Now}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func confirmPassword(password, confirmation string) error {
	if password != "" && password != confirmation {
		return utils.NewValidationError("The given data was invalid", map[string][]string{
			"password": {"The password confirmation does not match"},
		})
	}
	return nil
}

// Register creates a phone account and sends it a one-time code. Registering
// an unverified phone again re-issues the code.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	if err := confirmPassword(req.Password, req.PasswordConfirmation); err != nil {
		return nil, err
	}
	code, err := generateOTP()
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to generate OTP")
	}
	expires := s.now().Add(s.cfg.OTPTTL)

	phone := strings.TrimSpace(req.Phone)
	err = internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("phone = ?", phone).First(&user).Error
		switch {
		case err == nil && user.IsPhoneVerified:
			return utils.NewValidationError("The given data was invalid", map[string][]string{
				"phone": {"The phone has already been taken"},
			})
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return utils.WrapInternal(err, "failed to register user")
		}

		if req.Email != "" {
			var taken int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", req.Email, user.ID).Count(&taken).Error; err != nil {
				return utils.WrapInternal(err, "failed to register user")
			}
			if taken > 0 {
				return utils.NewValidationError("The given data was invalid", map[string][]string{
					"email": {"The email has already been taken"},
				})
			}
			user.Email = &req.Email
		}
		if req.Name != "" {
			user.Name = req.Name
		}
		if req.Password != "" {
			hashed, err := hashPassword(req.Password)
			if err != nil {
				return utils.WrapInternal(err, "failed to hash password")
			}
			user.Password = hashed
		}
		user.Phone = &phone
		user.OTPCode = code
		user.OTPExpiresAt = &expires
		user.IsPhoneVerified = false

		if err := tx.Omit("Roles", "Attachments").Save(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return utils.NewConflictError("phone or email has already been taken")
			}
			return utils.WrapInternal(err, "failed to register user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendOTP(ctx, phone, code); err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("failed to send OTP")
	}
	return &RegisterResult{Message: "User registered. OTP sent to mobile.", Phone: phone}, nil
}

// VerifyOTP checks the code, marks the phone verified and logs the user in.
func (s *AuthService) VerifyOTP(ctx context.Context, req *VerifyOTPRequest) (*AuthResult, error) {
	db := internal.DB.WithContext(ctx)
	var user models.User
	err := db.Where("phone = ?", strings.TrimSpace(req.Phone)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.WrapInternal(err, "failed to verify OTP")
	}
	if err != nil || user.OTPCode == "" || user.OTPCode != req.OTP {
		return nil, utils.NewBadRequestError("Invalid OTP")
	}
	if user.OTPExpiresAt == nil || !s.now().Before(*user.OTPExpiresAt) {
		return nil, utils.NewBadRequestError("OTP expired. Request a new one.")
	}

	err = db.Model(&user).Updates(map[string]interface{}{
		"is_phone_verified": true,
		"otp_code":          "",
		"otp_expires_at":    nil,
	}).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to verify OTP")
	}
	user.IsPhoneVerified = true
	user.OTPCode = ""
	user.OTPExpiresAt = nil

	token, err := s.issueToken(db, &user, "mobile-login")
	if err != nil {
		return nil, err
	}
	return &AuthResult{Message: "Phone verified successfully. Logged in.", Token: token, User: &user}, nil
}

// Login authenticates by email or phone. Every earlier token of the user is revoked.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
			"email": {"email or phone is required"},
		})
	}

	db := internal.DB.WithContext(ctx)
	query := db.Preload("Roles")
	if req.Email != "" {
		query = query.Where("email = ?", req.Email)
	} else {
		query = query.Where("phone = ?", strings.TrimSpace(req.Phone))
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAuthenticationError("Invalid credentials")
		}
		return nil, utils.WrapInternal(err, "failed to log in")
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, utils.NewAuthenticationError("Invalid credentials")
	}

	var token string
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.AccessToken{}).Error; err != nil {
			return utils.WrapInternal(err, "failed to revoke tokens")
		}
		var err error
		token, err = s.issueToken(tx, &user, "api_token")
		return err
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{Message: "Login successful", Token: token, User: &user}, nil
}

// issueToken stores an access token row and returns the signed JWT for it.
func (s *AuthService) issueToken(tx *gorm.DB, user *models.User, name string) (string, error) {
	now := s.now()
	row := models.AccessToken{
		ID:        newID(),
		UserID:    user.ID,
		Name:      name,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}
	if err := tx.Create(&row).Error; err != nil {
		return "", utils.WrapInternal(err, "failed to issue token")
	}

	claims := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        row.ID,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(row.ExpiresAt),
		Issuer:    "keywe",
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", utils.WrapInternal(err, "failed to sign token")
	}
	return signed, nil
}

// Authenticate resolves a bearer token to its user. The token is accepted only
// while its access_tokens row exists.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, *models.AccessToken, error) {
	if raw == "" {
		return nil, nil, utils.NewAuthenticationError("")
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, nil, utils.NewAuthenticationError("")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, nil, utils.NewAuthenticationError("")
	}

	db := internal.DB.WithContext(ctx)
	var token models.AccessToken
	if err := db.First(&token, "id = ?", claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NewAuthenticationError("")
		}
		return nil, nil, utils.WrapInternal(err, "failed to authenticate")
	}
	if token.UserID != claims.Subject || !s.now().Before(token.ExpiresAt) {
		return nil, nil, utils.NewAuthenticationError("")
	}

	var user models.User
	if err := db.Preload("Roles").First(&user, "id = ?", token.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NewAuthenticationError("")
		}
		return nil, nil, utils.WrapInternal(err, "failed to authenticate")
	}

	now := s.now()
	if err := db.Model(&token).UpdateColumn("last_used_at", now).Error; err != nil {
		log.Warn().Err(err).Str("token_id", token.ID).Msg("failed to touch access token")
	}
	token.LastUsedAt = &now
	return &user, &token, nil
}

// RevokeToken deletes one access token. Deleting a missing token is not an error.
func (s *AuthService) RevokeToken(ctx context.Context, tokenID string) error {
	if err := internal.DB.WithContext(ctx).Delete(&models.AccessToken{}, "id = ?", tokenID).Error; err != nil {
		return utils.WrapInternal(err, "failed to revoke token")
	}
	return nil
}

// Logout revokes the token used for the current request
func (s *AuthService) Logout(ctx context.Context, token *models.AccessToken) error {
	return s.RevokeToken(ctx, token.ID)
}

// Me builds the profile returned to the signed-in user
func (s *AuthService) Me(user *models.User) *UserProfile {
	return &UserProfile{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		Phone:              user.Phone,
		Role:               user.PrimaryRole(),
		VerificationStatus: user.VerificationStatus,
		IsPhoneVerified:    user.IsPhoneVerified,
	}
}

// CreateAdmin creates (or promotes) a super admin account with a password login.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if email == "" || len(password) < 8 {
		return nil, utils.NewValidationError("The given data was invalid", map[string][]string{
			"password": {"an email and a password of at least 8 characters are required"},
		})
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to hash password")
	}

	var user models.User
	err = internal.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.WrapInternal(err, "failed to create admin")
		}
		user.Name = name
		user.Email = &email
		user.Password = hashed
		user.VerificationStatus = models.VerificationVerified
		if err := tx.Omit("Roles", "Attachments").Save(&user).Error; err != nil {
			return utils.WrapInternal(err, "failed to create admin")
		}
		return assignRole(tx, user.ID, models.RoleSuperAdmin)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
