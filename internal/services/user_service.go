package services

import (
	"context"
	"fmt"

	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// userRoles is the set of assignable roles
var userRoles = map[string]bool{
	models.RoleAdmin:             true,
	models.RoleSales:             true,
	models.RoleSalesHead:         true,
	models.RoleBusinessHead:      true,
	models.RoleFinanceController: true,
	models.RoleCEO:               true,
	models.RoleInventoryManager:  true,
}

// UserService manages operator accounts
type UserService struct {
	repos  *repository.Repositories
	audit  *AuditService
	email  *EmailService
	worker *jobs.Worker
}

// NewUserService creates a new user service
func NewUserService(repos *repository.Repositories, audit *AuditService, email *EmailService, worker *jobs.Worker) *UserService {
	return &UserService{repos: repos, audit: audit, email: email, worker: worker}
}

// CreateUserRequest carries the input for a new user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Create provisions an operator account and sends a welcome email post-commit
func (s *UserService) Create(ctx context.Context, actorID uint, req *CreateUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleSales
	}
	if !userRoles[role] {
		return nil, NewValidationError("unknown role %q", role)
	}

	if _, err := s.repos.User.FindByEmail(ctx, req.Email); err == nil {
		return nil, NewConflictError("email %s is already registered", req.Email)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:             req.Email,
		EncryptedPassword: hash,
		FullName:          req.FullName,
		Phone:             req.Phone,
		Role:              role,
		Status:            models.StatusActive,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "User", user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	}); err != nil {
		return nil, err
	}

	created := *user
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.email.SendAccountCreated(ctx, &created); err != nil {
			logger.Warn(fmt.Sprintf("welcome email for user %d failed: %v", created.ID, err))
		}
		return nil
	})

	return user, nil
}

// UpdateUserRequest carries editable user fields
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Password *string `json:"password"`
}

// Update edits an operator account
func (s *UserService) Update(ctx context.Context, actorID uint, userID uint, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapFindErr(err, "user %d not found", userID)
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		if !userRoles[*req.Role] {
			return nil, NewValidationError("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusActive, models.StatusInactive, models.StatusSuspended:
			user.Status = *req.Status
		default:
			return nil, NewValidationError("unknown status %q", *req.Status)
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, NewValidationError("password must be at least 8 characters")
		}
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.EncryptedPassword = hash
	}

	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "User", user.ID, map[string]any{
		"role":   user.Role,
		"status": user.Status,
	}); err != nil {
		return nil, err
	}

	return user, nil
}

// Deactivate soft deletes a user; sessions stop working once the JWT expires
func (s *UserService) Deactivate(ctx context.Context, actorID uint, userID uint) error {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return wrapFindErr(err, "user %d not found", userID)
	}

	if err := s.repos.User.SoftDelete(ctx, user); err != nil {
		return err
	}
	if err := s.repos.RefreshToken.DeleteByUser(ctx, userID); err != nil {
		return err
	}

	return s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "User", userID, map[string]any{
		"deactivated": true,
	})
}

// FindByID returns one user
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "user %d not found", id)
	}
	return user, nil
}

// List returns users with filters
func (s *UserService) List(ctx context.Context, query *repository.UserQuery) ([]models.User, int64, error) {
	return s.repos.User.List(ctx, query)
}
