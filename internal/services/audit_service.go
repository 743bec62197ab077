package services

import (
	"context"
	"encoding/json"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// Audit action constants
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionApprove  = "APPROVE"
	ActionReject   = "REJECT"
	ActionUpload   = "UPLOAD"
	ActionPayment  = "PAYMENT"
	ActionDispatch = "DISPATCH"
	ActionBreach   = "BREACH"
)

// AuditService records an append-only trail of state-changing actions.
// Log calls take the repository as a parameter so entries commit inside the
// same transaction as the transition they describe.
type AuditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry through the given repository. Pass the
// transactional repository when the entry must commit atomically with the
// change it records.
func (s *AuditService) Log(ctx context.Context, repo repository.AuditRepository, actorID uint, action, entity string, entityID uint, details any) error {
	payload := ""
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			payload = string(b)
		}
	}
	entry := &models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  payload,
	}
	return repo.Create(ctx, entry)
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}

// Trail returns the full ordered history for one entity
func (s *AuditService) Trail(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	return s.repo.FindByEntity(ctx, entity, entityID)
}
