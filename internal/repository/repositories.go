package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Lead         LeadRepository
	Account      AccountRepository
	Deal         DealRepository
	Approval     ApprovalRepository
	Order        OrderRepository
	Document     DocumentRepository
	Payment      OrderPaymentRepository
	Dispute      DisputeRepository
	SLA          SLARepository
	Inventory    InventoryRepository
	Provision    ProvisionRepository
	Audit        AuditRepository
	Notification NotificationRepository
	RefreshToken RefreshTokenRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Lead:         NewLeadRepository(db),
		Account:      NewAccountRepository(db),
		Deal:         NewDealRepository(db),
		Approval:     NewApprovalRepository(db),
		Order:        NewOrderRepository(db),
		Document:     NewDocumentRepository(db),
		Payment:      NewOrderPaymentRepository(db),
		Dispute:      NewDisputeRepository(db),
		SLA:          NewSLARepository(db),
		Inventory:    NewInventoryRepository(db),
		Provision:    NewProvisionRepository(db),
		Audit:        NewAuditRepository(db),
		Notification: NewNotificationRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
	}
}

// TxManager runs a function against a transaction-scoped set of repositories.
// Every workflow transition that touches more than one row goes through it so
// entity status, Approval/SLA rows, and the audit entry commit or abort
// together.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a gorm-backed TxManager
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) WithinTransaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}
