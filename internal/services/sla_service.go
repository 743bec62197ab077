package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// systemActorID marks audit entries written by the scheduler, not a user.
const systemActorID = 0

// SLAService owns the SLA tracker lifecycle. Trackers open and complete
// inside the workflow transactions that create the obligation; the Sweep runs
// on a schedule and marks overdue trackers breached.
type SLAService struct {
	repos        *repository.Repositories
	txManager    repository.TxManager
	audit        *AuditService
	notification *NotificationService
	email        *EmailService
	webhook      *WebhookService
	userRepo     repository.UserRepository
}

// NewSLAService creates a new SLA service
func NewSLAService(
	repos *repository.Repositories,
	txManager repository.TxManager,
	audit *AuditService,
	notification *NotificationService,
	email *EmailService,
	webhook *WebhookService,
) *SLAService {
	return &SLAService{
		repos:        repos,
		txManager:    txManager,
		audit:        audit,
		notification: notification,
		email:        email,
		webhook:      webhook,
		userRepo:     repos.User,
	}
}

// OpenTracker creates an active tracker for the step through the given
// repositories, using the step's configured window and roles. Call it with
// the transactional repositories so the tracker commits with the transition
// that created the obligation.
func OpenTracker(ctx context.Context, repos *repository.Repositories, ref models.EntityRef, step string, now time.Time) error {
	assignee, escalation := models.SLARoles(step)
	sla := &models.SLA{
		Entity:         ref,
		Step:           step,
		Status:         models.SLAStatusActive,
		Deadline:       now.Add(models.SLAWindow(step)),
		AssigneeRole:   assignee,
		EscalationRole: escalation,
	}
	return repos.SLA.Create(ctx, sla)
}

// CompleteTracker marks the active tracker for the step completed. A missing
// tracker is not an error: the step may have been breached already, and the
// owning action still counts as done.
func CompleteTracker(ctx context.Context, repos *repository.Repositories, ref models.EntityRef, step string, now time.Time) error {
	sla, err := repos.SLA.FindActiveByEntityStep(ctx, ref, step)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	sla.Status = models.SLAStatusCompleted
	sla.CompletedAt = &now
	return repos.SLA.Update(ctx, sla)
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Checked  int `json:"checked"`
	Breached int `json:"breached"`
	Failed   int `json:"failed"`
}

// Sweep finds every active tracker past its deadline and marks it breached,
// one row per transaction so a single bad row cannot stall the rest. Each
// breach escalates post-commit: in-app notification to the escalation role,
// email, webhook event. A sweep with nothing due is a no-op.
func (s *SLAService) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	overdue, err := s.repos.SLA.FindBreachedAsOf(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Checked: len(overdue)}
	if len(overdue) == 0 {
		return result, nil
	}

	for i := range overdue {
		sla := overdue[i]
		breached := false
		err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
			// Re-read inside the transaction; a workflow action may have
			// completed the tracker since the scan.
			fresh, err := repos.SLA.FindByID(ctx, sla.ID)
			if err != nil {
				return err
			}
			if !fresh.IsBreachedAt(now) {
				return nil
			}

			breached = true
			fresh.Status = models.SLAStatusBreached
			fresh.EscalatedAt = &now
			fresh.EscalatedTo = fresh.EscalationRole
			if err := repos.SLA.Update(ctx, fresh); err != nil {
				return err
			}

			return s.audit.Log(ctx, repos.Audit, systemActorID, ActionBreach, "SLA", fresh.ID, map[string]any{
				"entity_type": fresh.Entity.Kind,
				"entity_id":   fresh.Entity.ID,
				"step":        fresh.Step,
				"deadline":    fresh.Deadline,
				"escalated_to": fresh.EscalationRole,
			})
		})
		if err != nil {
			logger.Error(fmt.Sprintf("sla sweep: tracker %d failed: %v", sla.ID, err))
			result.Failed++
			continue
		}
		if !breached {
			continue
		}
		result.Breached++
		s.escalate(ctx, sla, now)
	}

	logger.Info(fmt.Sprintf("sla sweep: %d checked, %d breached, %d failed",
		result.Checked, result.Breached, result.Failed))
	return result, nil
}

// escalate runs the post-commit side effects of a breach
func (s *SLAService) escalate(ctx context.Context, sla models.SLA, now time.Time) {
	title := fmt.Sprintf("SLA breached: %s", sla.Step)
	message := fmt.Sprintf("The %s step on %s #%d missed its deadline and needs attention.",
		sla.Step, sla.Entity.Kind, sla.Entity.ID)

	if err := s.notification.NotifyRole(ctx, sla.EscalationRole, title, message, models.NotificationTypeSLABreached); err != nil {
		logger.Warn(fmt.Sprintf("sla escalation notify failed for tracker %d: %v", sla.ID, err))
	}

	users, err := s.userRepo.FindByRole(ctx, sla.EscalationRole)
	if err == nil {
		for i := range users {
			if err := s.email.SendSLABreached(ctx, &users[i], &sla, now); err != nil {
				logger.Warn(fmt.Sprintf("sla escalation email failed for tracker %d: %v", sla.ID, err))
			}
		}
	}

	if err := s.webhook.Dispatch(ctx, models.NotificationTypeSLABreached, map[string]any{
		"entity_type": sla.Entity.Kind,
		"entity_id":   sla.Entity.ID,
		"step":        sla.Step,
		"deadline":    sla.Deadline,
	}); err != nil {
		logger.Warn(fmt.Sprintf("sla escalation webhook failed for tracker %d: %v", sla.ID, err))
	}
}

// List returns trackers with filters
func (s *SLAService) List(ctx context.Context, query *repository.SLAQuery) ([]models.SLA, int64, error) {
	return s.repos.SLA.List(ctx, query)
}

// ForEntity returns every tracker attached to one deal or order
func (s *SLAService) ForEntity(ctx context.Context, ref models.EntityRef) ([]models.SLA, error) {
	return s.repos.SLA.FindByEntity(ctx, ref)
}
