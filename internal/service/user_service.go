package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"quoteportal/internal/model"
	"quoteportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

var ErrUserNotFound = errors.New("user not found")

// DTOs for Request validation
type CreateUserRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
	Available  *bool  `json:"available"`
}

type UpdateUserRequest struct {
	Email      string  `json:"email" binding:"omitempty,email"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
	Available  *bool   `json:"available"`
}

type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	Available  bool      `json:"available"`
	CreatedAt  string    `json:"created_at"`
	UpdatedAt  string    `json:"updated_at"`
}

// UserService manages the user directory. Credentials are owned by the identity provider.
type UserService interface {
	CreateUser(ctx context.Context, actor model.Principal, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor model.Principal, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor model.Principal, id string) error
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	notifier  Notifier
}

// NewUserService returns a new instance of UserService. New users receive an
// invitation through notifier when it is non-nil.
func NewUserService(repo repository.UserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, notifier Notifier) UserService {
	return &userService{repo: repo, auditRepo: auditRepo, txManager: txManager, notifier: notifier}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       string(user.Role),
		Department: user.Department,
		Available:  user.Available,
		CreatedAt:  user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) CreateUser(ctx context.Context, actor model.Principal, req CreateUserRequest) (*UserResponse, error) {
	verr := &ValidationError{}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		verr.add("email", "invalid email format")
	}
	if strings.TrimSpace(req.Name) == "" {
		verr.add("name", "is required")
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		verr.add("role", "must be Employee, HOD, Finance, Admin or SuperUser")
	}
	if (role == model.RoleEmployee || role == model.RoleHOD) && strings.TrimSpace(req.Department) == "" {
		verr.add("department", "is required for Employee and HOD")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, &ValidationError{Fields: map[string]string{"email": "already exists"}}
	}

	user := &model.User{
		Email:      email,
		Name:       strings.TrimSpace(req.Name),
		Role:       role,
		Department: strings.TrimSpace(req.Department),
		Available:  true,
	}
	if req.Available != nil {
		user.Available = *req.Available
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateUser, user)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, model.Notification{
			RecipientEmail: user.Email,
			TemplateType:   model.TemplateInvitation,
			Variables: map[string]string{
				"name":       user.Name,
				"role":       string(user.Role),
				"department": user.Department,
				"invited_by": actor.Name,
			},
		})
	}

	return mapToResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor model.Principal, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if req.Role != "" {
		role := model.Role(req.Role)
		if !role.Valid() {
			verr.add("role", "must be Employee, HOD, Finance, Admin or SuperUser")
		} else {
			user.Role = role
		}
	}
	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !emailRegex.MatchString(email) {
			verr.add("email", "invalid email format")
		} else if email != user.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				verr.add("email", "already exists")
			}
			user.Email = email
		}
	}
	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}
	if req.Available != nil {
		user.Available = *req.Available
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionUpdateUser, user)
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor model.Principal, id string) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionDeleteUser, user)
	})
}

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *userService) audit(ctx context.Context, actor model.Principal, action string, user *model.User) error {
	details, _ := json.Marshal(map[string]interface{}{
		"role":       user.Role,
		"department": user.Department,
		"available":  user.Available,
	})
	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action,
		EntityID:   user.ID.String(),
		EntityName: user.Email,
		Details:    string(details),
	}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
