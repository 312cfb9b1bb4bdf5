package service

import (
	"context"
	"errors"
	"time"

	autherrors "expobook/internal/auth/errors"
	"expobook/internal/auth/password"
	"expobook/internal/auth/repository"
	"expobook/internal/auth/validator"
	"expobook/pkg/config"
	apperrors "expobook/pkg/errors"
	"expobook/pkg/model"
	"expobook/pkg/sanitizer"
)

type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Me(ctx context.Context, principal model.Principal) (*model.User, error)
	SeedAdmin(ctx context.Context, name, email, plainPassword string) error
}

// TokenIssuer signs a token for an authenticated user.
type TokenIssuer interface {
	Issue(user *model.User) (string, time.Time, error)
}

type authService struct {
	repo      repository.UserRepository
	tokens    TokenIssuer
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewAuthService(repo repository.UserRepository, tokens TokenIssuer, validator *validator.UserValidator, cfg *config.Config) AuthService {
	return &authService{
		repo:      repo,
		tokens:    tokens,
		validator: validator,
		cfg:       cfg,
	}
}

// Register creates a member account. Admins only come from SeedAdmin.
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.ValidateRegister(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid registration input", map[string]any{"error": err.Error()})
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleMember)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("User registered successfully", "id", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, apperrors.Validation("Invalid login input", map[string]any{"error": err.Error()})
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		s.cfg.Log.Error("Failed to load user for login", "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}
	if !password.Matches(user.PasswordHash, req.Password) {
		s.cfg.Log.Warn("Login rejected", "user_id", user.ID)
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	signed, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID, "role", user.Role)
	return &model.TokenResponse{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Me(ctx context.Context, principal model.Principal) (*model.User, error) {
	if principal.ID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	user, err := s.repo.FindByID(ctx, principal.ID)
	if err != nil {
		switch {
		case errors.Is(err, autherrors.ErrNotFound), errors.Is(err, autherrors.ErrInvalidID):
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// SeedAdmin creates the configured admin unless the email is already taken.
func (s *authService) SeedAdmin(ctx context.Context, name, email, plainPassword string) error {
	email = sanitizer.NormalizeEmail(email)

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			s.cfg.Log.Warn("Seed admin email belongs to a non-admin user", "user_id", existing.ID)
		}
		return nil
	case !errors.Is(err, autherrors.ErrNotFound):
		return apperrors.Internal("Failed to check admin account", err)
	}

	user, err := s.createUser(ctx, sanitizer.NormalizeName(name), email, plainPassword, model.RoleAdmin)
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Admin account seeded", "id", user.ID)
	return nil
}

func (s *authService) createUser(ctx context.Context, name, email, plainPassword string, role model.Role) (*model.User, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, apperrors.Internal("Failed to create user", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, autherrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email is already registered")
		}
		s.cfg.Log.Error("Failed to create user", "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}
	return user, nil
}
