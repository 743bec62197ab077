package services

import (
	"context"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// LeadService manages dealer leads through the capture and qualification
// funnel. Deals are raised elsewhere; leads only gate whether one may be.
type LeadService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewLeadService creates a new lead service
func NewLeadService(repos *repository.Repositories, audit *AuditService) *LeadService {
	return &LeadService{repos: repos, audit: audit}
}

// CreateLeadRequest carries the input for a new lead
type CreateLeadRequest struct {
	DealerName    string `json:"dealer_name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Region        string `json:"region"`
	AccountID     *uint  `json:"account_id"`
}

// Create captures a new lead owned by the acting user
func (s *LeadService) Create(ctx context.Context, actorID uint, req *CreateLeadRequest) (*models.Lead, error) {
	if req.AccountID != nil {
		if _, err := s.repos.Account.FindByID(ctx, *req.AccountID); err != nil {
			return nil, wrapFindErr(err, "account %d not found", *req.AccountID)
		}
	}

	lead := &models.Lead{
		DealerName:    req.DealerName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Region:        req.Region,
		Status:        models.LeadStatusNew,
		InterestLevel: models.InterestCold,
		AccountID:     req.AccountID,
		OwnerID:       &actorID,
	}
	if err := s.repos.Lead.Create(ctx, lead); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "Lead", lead.ID, map[string]any{
		"dealer_name": lead.DealerName,
	}); err != nil {
		return nil, err
	}

	return lead, nil
}

// UpdateLeadRequest carries editable lead fields
type UpdateLeadRequest struct {
	DealerName    *string `json:"dealer_name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Region        *string `json:"region"`
	Status        *string `json:"status"`
	InterestLevel *string `json:"interest_level"`
	AccountID     *uint   `json:"account_id"`
}

var leadStatuses = map[string]bool{
	models.LeadStatusNew:       true,
	models.LeadStatusContacted: true,
	models.LeadStatusQualified: true,
	models.LeadStatusDropped:   true,
}

var interestLevels = map[string]bool{
	models.InterestCold: true,
	models.InterestWarm: true,
	models.InterestHot:  true,
}

// Update edits a lead's contact data, funnel status and interest level
func (s *LeadService) Update(ctx context.Context, actorID uint, leadID uint, req *UpdateLeadRequest) (*models.Lead, error) {
	lead, err := s.repos.Lead.FindByID(ctx, leadID)
	if err != nil {
		return nil, wrapFindErr(err, "lead %d not found", leadID)
	}

	if req.Status != nil {
		if !leadStatuses[*req.Status] {
			return nil, NewValidationError("unknown lead status %q", *req.Status)
		}
		lead.Status = *req.Status
	}
	if req.InterestLevel != nil {
		if !interestLevels[*req.InterestLevel] {
			return nil, NewValidationError("unknown interest level %q", *req.InterestLevel)
		}
		lead.InterestLevel = *req.InterestLevel
	}
	if req.DealerName != nil {
		lead.DealerName = *req.DealerName
	}
	if req.ContactPerson != nil {
		lead.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Region != nil {
		lead.Region = *req.Region
	}
	if req.AccountID != nil {
		if _, err := s.repos.Account.FindByID(ctx, *req.AccountID); err != nil {
			return nil, wrapFindErr(err, "account %d not found", *req.AccountID)
		}
		lead.AccountID = req.AccountID
	}

	if err := s.repos.Lead.Update(ctx, lead); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "Lead", lead.ID, map[string]any{
		"status":         lead.Status,
		"interest_level": lead.InterestLevel,
	}); err != nil {
		return nil, err
	}

	return lead, nil
}

// FindByID returns a lead with its account, owner and deals
func (s *LeadService) FindByID(ctx context.Context, id uint) (*models.Lead, error) {
	lead, err := s.repos.Lead.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "lead %d not found", id)
	}
	return lead, nil
}

// List returns leads with filters
func (s *LeadService) List(ctx context.Context, query *repository.LeadQuery) ([]models.Lead, int64, error) {
	return s.repos.Lead.List(ctx, query)
}
