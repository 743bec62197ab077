package services

import (
	"context"
	"time"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// AccountService manages dealer and OEM accounts and exposes their credit
// standing as computed by the credit guard.
type AccountService struct {
	repos       *repository.Repositories
	creditGuard *CreditGuard
	audit       *AuditService
}

// NewAccountService creates a new account service
func NewAccountService(repos *repository.Repositories, creditGuard *CreditGuard, audit *AuditService) *AccountService {
	return &AccountService{repos: repos, creditGuard: creditGuard, audit: audit}
}

// AccountRequest carries account create/update fields
type AccountRequest struct {
	Name    string `json:"name" binding:"required"`
	Kind    string `json:"kind"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address"`
}

// Create registers a new dealer or OEM account
func (s *AccountService) Create(ctx context.Context, actorID uint, req *AccountRequest) (*models.Account, error) {
	kind := req.Kind
	if kind == "" {
		kind = models.AccountKindDealer
	}
	if kind != models.AccountKindDealer && kind != models.AccountKindOEM {
		return nil, NewValidationError("unknown account kind %q", kind)
	}

	account := &models.Account{
		Name:    req.Name,
		Kind:    kind,
		GSTIN:   req.GSTIN,
		Address: req.Address,
	}
	if err := s.repos.Account.Create(ctx, account); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "Account", account.ID, map[string]any{
		"name": account.Name,
		"kind": account.Kind,
	}); err != nil {
		return nil, err
	}

	return account, nil
}

// Update edits an account's master data
func (s *AccountService) Update(ctx context.Context, actorID uint, id uint, req *AccountRequest) (*models.Account, error) {
	account, err := s.repos.Account.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "account %d not found", id)
	}

	account.Name = req.Name
	if req.Kind != "" {
		if req.Kind != models.AccountKindDealer && req.Kind != models.AccountKindOEM {
			return nil, NewValidationError("unknown account kind %q", req.Kind)
		}
		account.Kind = req.Kind
	}
	account.GSTIN = req.GSTIN
	account.Address = req.Address

	if err := s.repos.Account.Update(ctx, account); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "Account", account.ID, nil); err != nil {
		return nil, err
	}

	return account, nil
}

// FindByID returns one account
func (s *AccountService) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.repos.Account.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "account %d not found", id)
	}
	return account, nil
}

// List returns accounts with filters
func (s *AccountService) List(ctx context.Context, query *repository.AccountQuery) ([]models.Account, int64, error) {
	return s.repos.Account.List(ctx, query)
}

// CreditStanding describes the live credit verdict for an account
type CreditStanding struct {
	AccountID uint   `json:"account_id"`
	Blocked   bool   `json:"blocked"`
	Reason    string `json:"reason,omitempty"`
}

// CreditStanding recomputes whether the account is credit blocked right now
func (s *AccountService) CreditStanding(ctx context.Context, id uint) (*CreditStanding, error) {
	if _, err := s.repos.Account.FindByID(ctx, id); err != nil {
		return nil, wrapFindErr(err, "account %d not found", id)
	}

	standing := &CreditStanding{AccountID: id}
	if err := s.creditGuard.Check(ctx, id, time.Now()); err != nil {
		if KindOf(err) == KindPrecondition {
			standing.Blocked = true
			standing.Reason = err.Error()
			return standing, nil
		}
		return nil, err
	}
	return standing, nil
}
