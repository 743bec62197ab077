package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// InventoryService manages battery units and the provisions that group them
// for procurement. Reservation happens in OrderService; here units only move
// through inspection and delivery bookkeeping.
type InventoryService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewInventoryService creates a new inventory service
func NewInventoryService(repos *repository.Repositories, audit *AuditService) *InventoryService {
	return &InventoryService{repos: repos, audit: audit}
}

// CreateItemRequest carries the input for a new inventory unit
type CreateItemRequest struct {
	Serial    string          `json:"serial" binding:"required"`
	Model     string          `json:"model" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateItem registers a unit pending inspection
func (s *InventoryService) CreateItem(ctx context.Context, actorID uint, req *CreateItemRequest) (*models.InventoryItem, error) {
	if req.UnitPrice.IsNegative() {
		return nil, NewValidationError("unit price cannot be negative")
	}
	if existing, err := s.repos.Inventory.FindBySerial(ctx, req.Serial); err == nil && existing != nil {
		return nil, NewConflictError("serial %s is already registered", req.Serial)
	}

	item := &models.InventoryItem{
		Serial:    req.Serial,
		Model:     req.Model,
		UnitPrice: req.UnitPrice,
		Status:    models.ItemStatusInspectionPending,
	}
	if err := s.repos.Inventory.Create(ctx, item); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "InventoryItem", item.ID, map[string]any{
		"serial": item.Serial,
		"model":  item.Model,
	}); err != nil {
		return nil, err
	}

	return item, nil
}

// PassInspection moves a unit from inspection_pending to available
func (s *InventoryService) PassInspection(ctx context.Context, actorID uint, itemID uint) (*models.InventoryItem, error) {
	item, err := s.repos.Inventory.FindByID(ctx, itemID)
	if err != nil {
		return nil, wrapFindErr(err, "inventory item %d not found", itemID)
	}
	if item.Status != models.ItemStatusInspectionPending {
		return nil, NewPreconditionError("item %s is %s, not pending inspection", item.Serial, item.Status)
	}

	item.Status = models.ItemStatusAvailable
	if err := s.repos.Inventory.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "InventoryItem", item.ID, map[string]any{
		"serial": item.Serial,
		"status": item.Status,
	}); err != nil {
		return nil, err
	}

	return item, nil
}

// MarkDelivered closes out an in-transit unit once the goods receipt is done
func (s *InventoryService) MarkDelivered(ctx context.Context, actorID uint, itemID uint) (*models.InventoryItem, error) {
	item, err := s.repos.Inventory.FindByID(ctx, itemID)
	if err != nil {
		return nil, wrapFindErr(err, "inventory item %d not found", itemID)
	}
	if item.Status != models.ItemStatusInTransit {
		return nil, NewPreconditionError("item %s is %s, not in transit", item.Serial, item.Status)
	}

	item.Status = models.ItemStatusDelivered
	if err := s.repos.Inventory.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "InventoryItem", item.ID, map[string]any{
		"serial": item.Serial,
		"status": item.Status,
	}); err != nil {
		return nil, err
	}

	return item, nil
}

// ListItems returns inventory units with filters
func (s *InventoryService) ListItems(ctx context.Context, query *repository.InventoryQuery) ([]models.InventoryItem, int64, error) {
	return s.repos.Inventory.List(ctx, query)
}

// FindItemByID returns one inventory unit
func (s *InventoryService) FindItemByID(ctx context.Context, id uint) (*models.InventoryItem, error) {
	item, err := s.repos.Inventory.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "inventory item %d not found", id)
	}
	return item, nil
}

// CreateProvisionRequest carries the input for a new procurement provision
type CreateProvisionRequest struct {
	OEMAccountID uint   `json:"oem_account_id" binding:"required"`
	ItemIDs      []uint `json:"item_ids" binding:"required,min=1"`
	Notes        string `json:"notes"`
}

// CreateProvision groups inventory units into a procurement request against
// an OEM account. Units must exist but need not be available yet; they only
// have to pass inspection before the provision becomes an order.
func (s *InventoryService) CreateProvision(ctx context.Context, actorID uint, req *CreateProvisionRequest) (*models.Provision, error) {
	account, err := s.repos.Account.FindByID(ctx, req.OEMAccountID)
	if err != nil {
		return nil, wrapFindErr(err, "account %d not found", req.OEMAccountID)
	}
	if account.Kind != models.AccountKindOEM {
		return nil, NewValidationError("account %d is a %s account, provisions need an OEM", account.ID, account.Kind)
	}

	items, err := s.repos.Inventory.FindByIDs(ctx, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(items) != len(req.ItemIDs) {
		return nil, NewNotFoundError("one or more inventory items do not exist")
	}

	provision := &models.Provision{
		OEMAccountID: req.OEMAccountID,
		CreatorID:    &actorID,
		Status:       models.ProvisionStatusOpen,
		Notes:        req.Notes,
	}
	for _, id := range req.ItemIDs {
		provision.Items = append(provision.Items, models.ProvisionItem{InventoryItemID: id})
	}
	if err := s.repos.Provision.Create(ctx, provision); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionCreate, "Provision", provision.ID, map[string]any{
		"oem_account_id": provision.OEMAccountID,
		"items":          len(req.ItemIDs),
	}); err != nil {
		return nil, err
	}

	return provision, nil
}

// FindProvisionByID returns a provision with its items
func (s *InventoryService) FindProvisionByID(ctx context.Context, id uint) (*models.Provision, error) {
	provision, err := s.repos.Provision.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "provision %d not found", id)
	}
	return provision, nil
}

// ListProvisions returns provisions with filters
func (s *InventoryService) ListProvisions(ctx context.Context, query *repository.ProvisionQuery) ([]models.Provision, int64, error) {
	return s.repos.Provision.List(ctx, query)
}

// CloseProvision abandons an open provision without ordering it
func (s *InventoryService) CloseProvision(ctx context.Context, actorID uint, id uint) (*models.Provision, error) {
	provision, err := s.repos.Provision.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "provision %d not found", id)
	}
	if provision.Status != models.ProvisionStatusOpen {
		return nil, NewPreconditionError("provision %d is %s, only open provisions can be closed", id, provision.Status)
	}

	provision.Status = models.ProvisionStatusClosed
	if err := s.repos.Provision.Update(ctx, provision); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, s.repos.Audit, actorID, ActionUpdate, "Provision", provision.ID, map[string]any{
		"status": provision.Status,
	}); err != nil {
		return nil, err
	}

	return provision, nil
}
