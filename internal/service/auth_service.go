package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/jwt"
	"go-pos-inventory/pkg/validator"
)

type SignupRequest struct {
	Username  string `json:"username" validate:"required,notblank,min=3,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	StoreName string `json:"store_name" validate:"required,notblank,max=255"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      model.UserResponse `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*Session, error)
	Login(ctx context.Context, req *LoginRequest) (*Session, error)
	// Logout revokes every session of the account by rotating its token version
	Logout(ctx context.Context, tenantID uuid.UUID) error
	Me(ctx context.Context, tenantID uuid.UUID) (*model.UserResponse, error)
	// Authenticate validates a session token and checks it has not been revoked
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	logger   *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, logger *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*Session, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}

	user := &model.User{
		Username:     strings.TrimSpace(req.Username),
		StoreName:    strings.TrimSpace(req.StoreName),
		TokenVersion: uuid.New().String(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, storageErr("hash password", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("failed to create account", zap.Error(err))
		return nil, storageErr("create account", err)
	}

	s.logger.Info("store account created", zap.String("tenant_id", user.ID.String()), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}

	// 1. Find account
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageErr("find account", err)
	}

	// 2. Verify password
	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Accounts created before token versions existed get one now
	if user.TokenVersion == "" {
		user.TokenVersion = uuid.New().String()
		if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion); err != nil {
			return nil, storageErr("update session", err)
		}
	}

	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.StoreName, user.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()).UTC(),
		User:      user.ToResponse(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.userRepo.UpdateTokenVersion(ctx, tenantID, uuid.New().String()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return storageErr("rotate token version", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, tenantID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storageErr("find account", err)
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storageErr("find account", err)
	}

	// Strict session: logout and password resets rotate the version
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func (s *authService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return validationf("password must be at least 6 characters")
	}

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "account", Name: username}
		}
		return storageErr("find account", err)
	}

	if err := user.SetPassword(newPassword); err != nil {
		return storageErr("hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return storageErr("update password", err)
	}
	// Existing sessions must not survive a reset
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String()); err != nil {
		return storageErr("rotate token version", err)
	}

	s.logger.Info("password reset", zap.String("tenant_id", user.ID.String()))
	return nil
}
