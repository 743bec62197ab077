package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/statemachine"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// DealService owns deal creation and the 3-level approval workflow. Every
// transition runs inside one transaction: approval decision, status change,
// SLA tracker moves and the audit entry commit together or not at all.
// Notifications and webhooks fire post-commit through the worker.
type DealService struct {
	repos        *repository.Repositories
	txManager    repository.TxManager
	creditGuard  *CreditGuard
	audit        *AuditService
	notification *NotificationService
	webhook      *WebhookService
	worker       *jobs.Worker
}

// NewDealService creates a new deal service
func NewDealService(
	repos *repository.Repositories,
	txManager repository.TxManager,
	creditGuard *CreditGuard,
	audit *AuditService,
	notification *NotificationService,
	webhook *WebhookService,
	worker *jobs.Worker,
) *DealService {
	return &DealService{
		repos:        repos,
		txManager:    txManager,
		creditGuard:  creditGuard,
		audit:        audit,
		notification: notification,
		webhook:      webhook,
		worker:       worker,
	}
}

// DealItemInput is one line of a deal create or update request
type DealItemInput struct {
	Description string          `json:"description" binding:"required"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateDealRequest carries the input for a new deal
type CreateDealRequest struct {
	LeadID         uint            `json:"lead_id" binding:"required"`
	PaymentTerms   string          `json:"payment_terms"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	Transport      decimal.Decimal `json:"transport"`
	Items          []DealItemInput `json:"items" binding:"required,min=1,dive"`
}

// Create raises a deal against a qualified hot lead and opens the level 1
// approval with its SLA tracker.
func (s *DealService) Create(ctx context.Context, actorID uint, req *CreateDealRequest) (*models.Deal, error) {
	if len(req.Items) == 0 {
		return nil, NewValidationError("a deal needs at least one line item")
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, NewValidationError("item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, NewValidationError("item %d: unit price cannot be negative", i+1)
		}
	}

	lead, err := s.repos.Lead.FindByID(ctx, req.LeadID)
	if err != nil {
		return nil, wrapFindErr(err, "lead %d not found", req.LeadID)
	}
	if !lead.IsDealReady() {
		return nil, NewPreconditionError(
			"lead %d is not deal-ready: status must be qualified with hot interest (got %s/%s)",
			lead.ID, lead.Status, lead.InterestLevel)
	}

	hasActive, err := s.repos.Deal.HasActiveDealForLead(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, NewConflictError("lead %d already has a deal in approval", lead.ID)
	}

	now := time.Now()
	if lead.AccountID != nil {
		if err := s.creditGuard.Check(ctx, *lead.AccountID, now); err != nil {
			return nil, err
		}
	}

	deal := &models.Deal{
		GUID:           newGUID("DL"),
		LeadID:         lead.ID,
		CreatorID:      &actorID,
		PaymentTerms:   req.PaymentTerms,
		Status:         models.DealStatusPendingL1,
		TaxRatePercent: req.TaxRatePercent,
		Transport:      req.Transport,
	}
	for _, item := range req.Items {
		deal.Items = append(deal.Items, models.DealItem{
			Description: item.Description,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	deal.ComputeTotals()

	stage := models.PipelineStage(models.DealPipeline, 1)

	err = s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.Deal.Create(ctx, deal); err != nil {
			return err
		}

		approval := &models.Approval{
			Entity:       models.DealRef(deal.ID),
			Level:        stage.Level,
			RequiredRole: stage.RequiredRole,
			Status:       models.ApprovalStatusPending,
		}
		if err := repos.Approval.Create(ctx, approval); err != nil {
			return err
		}

		if err := OpenTracker(ctx, repos, models.DealRef(deal.ID), models.SLAStepDealApproval(1), now); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionCreate, "Deal", deal.ID, map[string]any{
			"guid":          deal.GUID,
			"lead_id":       deal.LeadID,
			"total_payable": deal.TotalPayable,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(deal, models.NotificationTypeDealCreated, stage.RequiredRole,
		fmt.Sprintf("Deal %s awaits level 1 approval", deal.GUID))

	return deal, nil
}

// Approve decides the given approval level. The actor's role must be allowed
// at that level and the deal must currently be waiting on exactly that level.
// Approving level 3 finalizes the deal: it becomes immutable and the invoice
// issue timestamp is set.
func (s *DealService) Approve(ctx context.Context, actorID uint, actorRole string, dealID uint, level int, comments string) (*models.Deal, error) {
	stage := models.PipelineStage(models.DealPipeline, level)
	if stage == nil {
		return nil, NewValidationError("invalid approval level %d", level)
	}
	if !stage.Allows(actorRole) {
		return nil, NewPermissionError("role %s may not approve deal level %d", actorRole, level)
	}

	now := time.Now()
	var deal *models.Deal

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		deal, err = repos.Deal.FindByID(ctx, dealID)
		if err != nil {
			return wrapFindErr(err, "deal %d not found", dealID)
		}
		if deal.IsTerminal() {
			return NewPreconditionError("deal %d is already %s", dealID, deal.Status)
		}
		if deal.Status != models.DealPendingStatus(level) {
			return NewConflictError("deal %d is not waiting on level %d (current: %s)",
				dealID, level, deal.Status)
		}

		// Every approval recomputes the credit verdict; debt may have aged
		// past the block window since the deal was raised.
		lead, err := repos.Lead.FindByID(ctx, deal.LeadID)
		if err != nil {
			return err
		}
		if lead.AccountID != nil {
			if err := s.creditGuard.Check(ctx, *lead.AccountID, now); err != nil {
				return err
			}
		}

		machine := statemachine.NewDealFSM(deal)
		if err := machine.Approve(ctx, level); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval, err := repos.Approval.FindByEntityAndLevel(ctx, models.DealRef(deal.ID), level)
		if err != nil {
			return wrapFindErr(err, "approval for deal %d level %d not found", dealID, level)
		}
		if !approval.IsPending() {
			return NewConflictError("deal %d level %d is already decided", dealID, level)
		}
		approval.Status = models.ApprovalStatusApproved
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.Comments = comments
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.DealRef(deal.ID), models.SLAStepDealApproval(level), now); err != nil {
			return err
		}

		if deal.Status == models.DealStatusApproved {
			deal.IsImmutable = true
			deal.InvoiceIssuedAt = &now
		} else {
			nextStage := models.PipelineStage(models.DealPipeline, level+1)
			if nextStage == nil {
				return NewConflictError("deal pipeline has no level %d", level+1)
			}
			next := &models.Approval{
				Entity:       models.DealRef(deal.ID),
				Level:        nextStage.Level,
				RequiredRole: nextStage.RequiredRole,
				Status:       models.ApprovalStatusPending,
			}
			if err := repos.Approval.Create(ctx, next); err != nil {
				return err
			}
			if err := OpenTracker(ctx, repos, models.DealRef(deal.ID), models.SLAStepDealApproval(level+1), now); err != nil {
				return err
			}
		}

		if err := repos.Deal.Update(ctx, deal); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionApprove, "Deal", deal.ID, map[string]any{
			"level":      level,
			"new_status": deal.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	if deal.Status == models.DealStatusApproved {
		s.notifyAfterCommit(deal, models.NotificationTypeDealApproved, models.RoleSales,
			fmt.Sprintf("Deal %s is fully approved and locked", deal.GUID))
	} else {
		nextStage := models.PipelineStage(models.DealPipeline, level+1)
		s.notifyAfterCommit(deal, models.NotificationTypeDealCreated, nextStage.RequiredRole,
			fmt.Sprintf("Deal %s awaits level %d approval", deal.GUID, level+1))
	}

	return deal, nil
}

// Reject declines the deal at its current pending level. A reason is
// mandatory and the rejection is terminal; a new deal must be raised to retry.
func (s *DealService) Reject(ctx context.Context, actorID uint, actorRole string, dealID uint, reason string) (*models.Deal, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, NewValidationError("a rejection reason is required")
	}

	now := time.Now()
	var deal *models.Deal

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		deal, err = repos.Deal.FindByID(ctx, dealID)
		if err != nil {
			return wrapFindErr(err, "deal %d not found", dealID)
		}
		if !deal.MayReject() {
			return NewPreconditionError("deal %d cannot be rejected in state %s", dealID, deal.Status)
		}

		level := pendingLevel(deal.Status)
		stage := models.PipelineStage(models.DealPipeline, level)
		if !stage.Allows(actorRole) {
			return NewPermissionError("role %s may not decide deal level %d", actorRole, level)
		}

		machine := statemachine.NewDealFSM(deal)
		if err := machine.Reject(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval, err := repos.Approval.FindByEntityAndLevel(ctx, models.DealRef(deal.ID), level)
		if err != nil {
			return wrapFindErr(err, "approval for deal %d level %d not found", dealID, level)
		}
		if !approval.IsPending() {
			return NewConflictError("deal %d level %d is already decided", dealID, level)
		}
		approval.Status = models.ApprovalStatusRejected
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.RejectionReason = reason
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.DealRef(deal.ID), models.SLAStepDealApproval(level), now); err != nil {
			return err
		}

		deal.RejectionReason = &reason
		if err := repos.Deal.Update(ctx, deal); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionReject, "Deal", deal.ID, map[string]any{
			"level":  level,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(deal, models.NotificationTypeDealRejected, models.RoleSales,
		fmt.Sprintf("Deal %s was rejected: %s", deal.GUID, reason))

	return deal, nil
}

// UpdateDealRequest carries editable deal fields. Edits are only allowed
// before the first approval decision.
type UpdateDealRequest struct {
	PaymentTerms   *string          `json:"payment_terms"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent"`
	Transport      *decimal.Decimal `json:"transport"`
	Items          []DealItemInput  `json:"items"`
}

// Update edits a deal still waiting on level 1. Approved deals are immutable
// and any deal past level 1 must be rejected and re-raised instead.
func (s *DealService) Update(ctx context.Context, actorID uint, dealID uint, req *UpdateDealRequest) (*models.Deal, error) {
	var deal *models.Deal

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		deal, err = repos.Deal.FindByIDWithDetails(ctx, dealID)
		if err != nil {
			return wrapFindErr(err, "deal %d not found", dealID)
		}
		if deal.IsImmutable {
			return NewPreconditionError("deal %d is approved and immutable", dealID)
		}
		if deal.Status != models.DealStatusPendingL1 {
			return NewPreconditionError(
				"deal %d can no longer be edited (state %s); reject and raise a new deal",
				dealID, deal.Status)
		}

		if req.PaymentTerms != nil {
			deal.PaymentTerms = *req.PaymentTerms
		}
		if req.TaxRatePercent != nil {
			deal.TaxRatePercent = *req.TaxRatePercent
		}
		if req.Transport != nil {
			deal.Transport = *req.Transport
		}
		if req.Items != nil {
			if len(req.Items) == 0 {
				return NewValidationError("a deal needs at least one line item")
			}
			items := make([]models.DealItem, 0, len(req.Items))
			for _, item := range req.Items {
				if item.Quantity <= 0 {
					return NewValidationError("quantity must be positive")
				}
				items = append(items, models.DealItem{
					DealID:      deal.ID,
					Description: item.Description,
					SKU:         item.SKU,
					Quantity:    item.Quantity,
					UnitPrice:   item.UnitPrice,
				})
			}
			deal.Items = items
		}
		deal.ComputeTotals()

		if err := repos.Deal.Update(ctx, deal); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionUpdate, "Deal", deal.ID, map[string]any{
			"total_payable": deal.TotalPayable,
		})
	})
	if err != nil {
		return nil, err
	}

	return deal, nil
}

// FindByID returns a deal with its lead and items
func (s *DealService) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	deal, err := s.repos.Deal.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "deal %d not found", id)
	}
	return deal, nil
}

// List returns deals with filters
func (s *DealService) List(ctx context.Context, query *repository.DealQuery) ([]models.Deal, int64, error) {
	return s.repos.Deal.List(ctx, query)
}

// Approvals returns the deal's approval trail ordered by level
func (s *DealService) Approvals(ctx context.Context, dealID uint) ([]models.Approval, error) {
	if _, err := s.repos.Deal.FindByID(ctx, dealID); err != nil {
		return nil, wrapFindErr(err, "deal %d not found", dealID)
	}
	return s.repos.Approval.FindByEntity(ctx, models.DealRef(dealID))
}

// GetStats returns deal counts by outcome
func (s *DealService) GetStats(ctx context.Context) (*repository.DealStats, error) {
	return s.repos.Deal.GetStats(ctx)
}

// notifyAfterCommit fans out an in-app notification and a webhook event
// through the worker so no side effect runs inside a transaction.
func (s *DealService) notifyAfterCommit(deal *models.Deal, event, role, message string) {
	dealID := deal.ID
	guid := deal.GUID
	status := deal.Status
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notification.NotifyRole(ctx, role, "Deal update", message, event); err != nil {
			logger.Warn(fmt.Sprintf("deal %d notification failed: %v", dealID, err))
		}
		return s.webhook.Dispatch(ctx, event, map[string]any{
			"entity_type": models.EntityDeal,
			"entity_id":   dealID,
			"guid":        guid,
			"status":      status,
		})
	})
}

// pendingLevel maps a pending deal status back to its approval level
func pendingLevel(status string) int {
	switch status {
	case models.DealStatusPendingL1:
		return 1
	case models.DealStatusPendingL2:
		return 2
	default:
		return 3
	}
}

// newGUID builds a short prefixed business identifier
func newGUID(prefix string) string {
	id := uuid.NewString()
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(id[:8]))
}
