package services

import (
	"context"
	"time"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// DisputeService tracks damage, shortage and delivery-failure disputes on
// orders. Open disputes block payment recording via the dispute guard.
type DisputeService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewDisputeService creates a new dispute service
func NewDisputeService(repos *repository.Repositories, audit *AuditService) *DisputeService {
	return &DisputeService{repos: repos, audit: audit}
}

var disputeKinds = map[string]bool{
	models.DisputeKindDamage:          true,
	models.DisputeKindShortage:        true,
	models.DisputeKindDeliveryFailure: true,
}

// RaiseDisputeRequest carries the input for a new dispute
type RaiseDisputeRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Kind    string `json:"kind" binding:"required"`
	Details string `json:"details"`
}

// Raise opens a dispute on an order
func (s *DisputeService) Raise(ctx context.Context, actorID uint, req *RaiseDisputeRequest) (*models.OrderDispute, error) {
	if !disputeKinds[req.Kind] {
		return nil, NewValidationError("unknown dispute kind %q", req.Kind)
	}
	if _, err := s.repos.Order.FindByID(ctx, req.OrderID); err != nil {
		return nil, wrapFindErr(err, "order %d not found", req.OrderID)
	}

	dispute := &models.OrderDispute{
		OrderID:          req.OrderID,
		Kind:             req.Kind,
		Details:          req.Details,
		ResolutionStatus: models.DisputeOpen,
		RaisedByID:       actorID,
	}
	if err := s.repos.Dispute.Create(ctx, dispute); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "OrderDispute", dispute.ID, map[string]any{
		"order_id": dispute.OrderID,
		"kind":     dispute.Kind,
	}); err != nil {
		return nil, err
	}

	return dispute, nil
}

// Resolve closes an open dispute, unblocking payments on the order
func (s *DisputeService) Resolve(ctx context.Context, actorID uint, disputeID uint) (*models.OrderDispute, error) {
	dispute, err := s.repos.Dispute.FindByID(ctx, disputeID)
	if err != nil {
		return nil, wrapFindErr(err, "dispute %d not found", disputeID)
	}
	if !dispute.IsOpen() {
		return nil, NewPreconditionError("dispute %d is already resolved", disputeID)
	}

	now := time.Now()
	dispute.ResolutionStatus = models.DisputeResolved
	dispute.ResolvedAt = &now
	if err := s.repos.Dispute.Update(ctx, dispute); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "OrderDispute", dispute.ID, map[string]any{
		"order_id": dispute.OrderID,
		"status":   dispute.ResolutionStatus,
	}); err != nil {
		return nil, err
	}

	return dispute, nil
}

// ForOrder returns all disputes on an order, newest first
func (s *DisputeService) ForOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error) {
	if _, err := s.repos.Order.FindByID(ctx, orderID); err != nil {
		return nil, wrapFindErr(err, "order %d not found", orderID)
	}
	return s.repos.Dispute.FindByOrder(ctx, orderID)
}
