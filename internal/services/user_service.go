package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"slices"
	"strings"
	"time"

	"listai/internal/models"
	"listai/pkg/auth"

	"github.com/google/uuid"
)

// SignupInput is the payload of POST /auth/signup
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Lang     string `json:"lang"`
}

// LoginInput is the payload of POST /auth/login
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by signup and login
type AuthResult struct {
	User         models.UserProfile `json:"user"`
	Token        string             `json:"token"`
	RefreshToken string             `json:"refreshToken"`
}

// UserService handles accounts, credentials and settings
type UserService struct {
	users UserStore
	jwt   *auth.LocalJWTAuth
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtAuth *auth.LocalJWTAuth) *UserService {
	return &UserService{
		users: users,
		jwt:   jwtAuth,
		now:   time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a free-tier account and issues a token pair
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationFailure("email must be a valid address")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, validationFailure("%s", err.Error())
	}

	lang := in.Lang
	if lang == "" {
		lang = models.DefaultLanguage
	}
	if !slices.Contains(models.SupportedLanguages, lang) {
		return nil, validationFailure("lang must be one of: %s", strings.Join(models.SupportedLanguages, ", "))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, &AppError{Kind: KindStorage, Message: "failed to create account", Err: err}
	}

	user := &models.User{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		Lang:             lang,
		SubscriptionTier: models.TierFree,
		CreatedAt:        s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, &AppError{Kind: KindConflict, Message: "User with this email already exists"}
		}
		return nil, storageFailure("failed to create account", err)
	}

	log.Printf("✅ [AUTH] New user registered: %s", user.ID)
	return s.issue(user)
}

// Login checks credentials and issues a token pair
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, storageFailure("failed to load user", err)
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, in.Password) {
		return nil, &AppError{Kind: KindUnauthorized, Message: "Invalid credentials"}
	}
	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new pair
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, &AppError{Kind: KindUnauthorized, Message: "Invalid refresh token", Err: err}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &AppError{Kind: KindUnauthorized, Message: "Invalid refresh token"}
	}
	if err != nil {
		return nil, storageFailure("failed to load user", err)
	}

	pair, err := s.jwt.GenerateTokens(user.ID, user.Email)
	if err != nil {
		return nil, &AppError{Kind: KindStorage, Message: "failed to issue tokens", Err: err}
	}
	return pair, nil
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.jwt.GenerateTokens(user.ID, user.Email)
	if err != nil {
		return nil, &AppError{Kind: KindStorage, Message: "failed to issue tokens", Err: err}
	}
	return &AuthResult{User: user.Profile(), Token: pair.Token, RefreshToken: pair.RefreshToken}, nil
}

// Me returns the profile of the caller
func (s *UserService) Me(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load user", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateSettings merges the given keys into the stored settings
func (s *UserService) UpdateSettings(ctx context.Context, userID string, patch models.UserSettings) (*models.UserSettings, error) {
	if patch.DailyTimeLimitMins != nil && *patch.DailyTimeLimitMins <= 0 {
		return nil, validationFailure("dailyTimeLimitMins must be positive")
	}
	if patch.DefaultDailyHours != nil && (*patch.DefaultDailyHours <= 0 || *patch.DefaultDailyHours > 24) {
		return nil, validationFailure("defaultDailyHours must be between 0 and 24")
	}
	if patch.NotifyTime != nil {
		if _, err := time.Parse("15:04", *patch.NotifyTime); err != nil {
			return nil, validationFailure("notifyTime must be HH:MM")
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, storageFailure("failed to load user", err)
	}

	merged := user.Settings.Merge(patch)
	if err := s.users.UpdateSettings(ctx, userID, merged); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("User not found")
		}
		return nil, storageFailure("failed to update settings", err)
	}
	return &merged, nil
}
