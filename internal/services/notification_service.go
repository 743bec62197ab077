package services

import (
	"context"
	"fmt"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// NotificationService writes in-app notification rows. Fan-out happens
// post-commit via the worker, so a failed insert only logs.
type NotificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo}
}

func (s *NotificationService) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "notification %d not found", id)
	}
	return notification, nil
}

func (s *NotificationService) FindByUser(ctx context.Context, userID uint, unreadOnly bool, query *repository.ListQuery) ([]models.Notification, int64, error) {
	return s.repo.FindByUser(ctx, userID, unreadOnly, query)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkAsRead marks one notification as read. Only the owner may do so.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uint) error {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return wrapFindErr(err, "notification %d not found", id)
	}
	if notification.UserID != userID {
		return NewPermissionError("notification %d does not belong to you", id)
	}
	if notification.IsRead() {
		return nil
	}
	notification.MarkAsRead()
	return s.repo.Update(ctx, notification)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// NotifyUser creates an in-app notification for one user
func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, title, message, notifType string) error {
	notification := &models.Notification{
		UserID:           userID,
		Title:            title,
		Message:          message,
		NotificationType: &notifType,
	}
	return s.repo.Create(ctx, notification)
}

// NotifyRole fans a notification out to every active user holding the role
func (s *NotificationService) NotifyRole(ctx context.Context, role, title, message, notifType string) error {
	users, err := s.userRepo.FindByRole(ctx, role)
	if err != nil {
		return err
	}
	for _, user := range users {
		if err := s.NotifyUser(ctx, user.ID, title, message, notifType); err != nil {
			logger.Warn(fmt.Sprintf("notify user %d failed: %v", user.ID, err))
		}
	}
	return nil
}
