package repository

import (
	"context"
	"strings"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	List(ctx context.Context, query *OrderQuery) ([]models.Order, int64, error)
	FindUnpaidByAccount(ctx context.Context, accountID uint) ([]models.Order, error)
	GetStats(ctx context.Context) (*OrderStats, error)
}

// OrderQuery extends ListQuery with order-specific filters
type OrderQuery struct {
	*ListQuery
	Status        string
	PaymentStatus string
	OEMAccountID  uint
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Joins("OEMAccount").
		Preload("Items").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_documents.version DESC")
		}).
		Preload("Payments").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) List(ctx context.Context, query *OrderQuery) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Order{})

	if query.Status != "" {
		statuses := strings.Split(query.Status, ",")
		for i, s := range statuses {
			statuses[i] = strings.TrimSpace(s)
		}
		if len(statuses) == 1 {
			db = db.Where("orders.order_status = ?", statuses[0])
		} else {
			db = db.Where("orders.order_status IN ?", statuses)
		}
	}

	if query.PaymentStatus != "" {
		db = db.Where("orders.payment_status = ?", query.PaymentStatus)
	}

	if query.OEMAccountID > 0 {
		db = db.Where("orders.oem_account_id = ?", query.OEMAccountID)
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN accounts ON accounts.id = orders.oem_account_id").
			Where("orders.guid ILIKE ? OR accounts.name ILIKE ?", search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("orders.created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("OEMAccount").
		Preload("Items").
		Find(&orders).Error
	return orders, total, err
}

// FindUnpaidByAccount returns orders for an OEM account still carrying an
// outstanding balance, oldest first. Every pipeline stage counts: an order
// stalled before invoice approval is still unpaid debt.
func (r *orderRepository) FindUnpaidByAccount(ctx context.Context, accountID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("oem_account_id = ? AND payment_status IN ?", accountID,
			[]string{models.PaymentStatusUnpaid, models.PaymentStatusPartial}).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// OrderStats holds counts of orders grouped by pipeline stage
type OrderStats struct {
	Total       int64 `json:"total"`
	AwaitingPI  int64 `json:"awaiting_pi"`
	InApproval  int64 `json:"in_approval"`
	InPayment   int64 `json:"in_payment"`
	Dispatched  int64 `json:"dispatched"`
}

func (r *orderRepository) GetStats(ctx context.Context) (*OrderStats, error) {
	stats := &OrderStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("order_status, count(*) as count").
		Group("order_status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case models.OrderStatusPIAwaited, models.OrderStatusPIRejected:
			stats.AwaitingPI += count
		case models.OrderStatusPIPending, models.OrderStatusPIL2Pending,
			models.OrderStatusPIL3Pending, models.OrderStatusInvoicePending,
			models.OrderStatusInvoiceRejected:
			stats.InApproval += count
		case models.OrderStatusInvoiceApproved, models.OrderStatusPaymentPending,
			models.OrderStatusPaymentMade:
			stats.InPayment += count
		case models.OrderStatusAssetDispatched:
			stats.Dispatched = count
		}
	}

	return stats, nil
}

// DocumentRepository defines the interface for order document data access.
// Documents are append-only; a new upload adds a version, it never replaces.
type DocumentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.OrderDocument, error)
	FindActive(ctx context.Context, orderID uint, kind string) (*models.OrderDocument, error)
	FindByOrderAndKind(ctx context.Context, orderID uint, kind string) ([]models.OrderDocument, error)
	NextVersion(ctx context.Context, orderID uint, kind string) (int, error)
	DeactivateByOrderAndKind(ctx context.Context, orderID uint, kind string) error
	Create(ctx context.Context, doc *models.OrderDocument) error
	Update(ctx context.Context, doc *models.OrderDocument) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) FindByID(ctx context.Context, id uint) (*models.OrderDocument, error) {
	var doc models.OrderDocument
	err := r.db.WithContext(ctx).First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindActive(ctx context.Context, orderID uint, kind string) (*models.OrderDocument, error) {
	var doc models.OrderDocument
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND kind = ? AND active = ?", orderID, kind, true).
		Order("version DESC").
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByOrderAndKind(ctx context.Context, orderID uint, kind string) ([]models.OrderDocument, error) {
	var docs []models.OrderDocument
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Order("version DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) NextVersion(ctx context.Context, orderID uint, kind string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.OrderDocument{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *documentRepository) DeactivateByOrderAndKind(ctx context.Context, orderID uint, kind string) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderDocument{}).
		Where("order_id = ? AND kind = ? AND active = ?", orderID, kind, true).
		Update("active", false).Error
}

func (r *documentRepository) Create(ctx context.Context, doc *models.OrderDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) Update(ctx context.Context, doc *models.OrderDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// OrderPaymentRepository defines the interface for payment data access
type OrderPaymentRepository interface {
	FindByOrder(ctx context.Context, orderID uint) ([]models.OrderPayment, error)
	SumByOrder(ctx context.Context, orderID uint) (decimal.Decimal, error)
	Create(ctx context.Context, payment *models.OrderPayment) error
}

type orderPaymentRepository struct {
	db *gorm.DB
}

// NewOrderPaymentRepository creates a new payment repository
func NewOrderPaymentRepository(db *gorm.DB) OrderPaymentRepository {
	return &orderPaymentRepository{db: db}
}

func (r *orderPaymentRepository) FindByOrder(ctx context.Context, orderID uint) ([]models.OrderPayment, error) {
	var payments []models.OrderPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Preload("RecordedBy").
		Find(&payments).Error
	return payments, err
}

// SumByOrder totals all payment rows for the order. The sum is computed in SQL
// and scanned as a string to keep decimal precision intact.
func (r *orderPaymentRepository) SumByOrder(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).
		Model(&models.OrderPayment{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *orderPaymentRepository) Create(ctx context.Context, payment *models.OrderPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// DisputeRepository defines the interface for order dispute data access
type DisputeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.OrderDispute, error)
	FindOpenByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error)
	FindByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error)
	Create(ctx context.Context, dispute *models.OrderDispute) error
	Update(ctx context.Context, dispute *models.OrderDispute) error
}

type disputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) FindByID(ctx context.Context, id uint) (*models.OrderDispute, error) {
	var dispute models.OrderDispute
	err := r.db.WithContext(ctx).First(&dispute, id).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *disputeRepository) FindOpenByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error) {
	var disputes []models.OrderDispute
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND resolution_status = ?", orderID, models.DisputeOpen).
		Find(&disputes).Error
	return disputes, err
}

func (r *disputeRepository) FindByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error) {
	var disputes []models.OrderDispute
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}

func (r *disputeRepository) Create(ctx context.Context, dispute *models.OrderDispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *disputeRepository) Update(ctx context.Context, dispute *models.OrderDispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}
