package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proctorhub/internal/common"
	"proctorhub/internal/common/security"
	"proctorhub/internal/domain/model"
	dr "proctorhub/internal/domain/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Role      string `json:"role" validate:"required,oneof=student teacher"`
	StudentID string `json:"student_id" validate:"omitempty,min=3,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        *model.User `json:"user"`
}

type AuthService struct {
	userRepo dr.UserRepository
	jwt      *security.JWT
	validate *validator.Validate
}

func NewAuthService(userRepo dr.UserRepository, jwt *security.JWT) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwt:      jwt,
		validate: validator.New(),
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}
	if req.Role == model.RoleStudent && req.StudentID == "" {
		return nil, fmt.Errorf("%w: student_id is required for the student role", common.ErrValidation)
	}
	if req.Role == model.RoleTeacher && req.StudentID != "" {
		return nil, fmt.Errorf("%w: student_id must be empty for the teacher role", common.ErrValidation)
	}

	// Uniqueness is pre-checked so callers see a validation error with a
	// field name; the database unique constraints remain the backstop.
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email is already registered", common.ErrValidation)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if req.StudentID != "" {
		if _, err := s.userRepo.FindByStudentID(ctx, req.StudentID); err == nil {
			return nil, fmt.Errorf("%w: student_id is already registered", common.ErrValidation)
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Name:         req.Name,
		IsActive:     true,
	}
	if req.StudentID != "" {
		user.StudentID = &req.StudentID
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the pre-checks and hit the
		// database unique constraint; surface it the same way.
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: email or student_id is already registered", common.ErrValidation)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is disabled: %w", common.ErrForbidden)
	}
	if !security.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.jwt.ExpirySeconds(),
		User:        user,
	}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
