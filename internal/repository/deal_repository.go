package repository

import (
	"context"
	"strings"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"gorm.io/gorm"
)

// DealRepository defines the interface for deal data access
type DealRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Deal, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) error
	Update(ctx context.Context, deal *models.Deal) error
	List(ctx context.Context, query *DealQuery) ([]models.Deal, int64, error)
	HasActiveDealForLead(ctx context.Context, leadID uint) (bool, error)
	GetStats(ctx context.Context) (*DealStats, error)
}

// DealQuery extends ListQuery with deal-specific filters
type DealQuery struct {
	*ListQuery
	Status string
	LeadID uint
}

type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Joins("Lead").
		Joins("Creator").
		Preload("Items").
		First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

func (r *dealRepository) Update(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

func (r *dealRepository) List(ctx context.Context, query *DealQuery) ([]models.Deal, int64, error) {
	var deals []models.Deal
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Deal{})

	if query.Status != "" {
		statuses := strings.Split(query.Status, ",")
		for i, s := range statuses {
			statuses[i] = strings.TrimSpace(s)
		}
		if len(statuses) == 1 {
			db = db.Where("deals.deal_status = ?", statuses[0])
		} else {
			db = db.Where("deals.deal_status IN ?", statuses)
		}
	}

	if query.LeadID > 0 {
		db = db.Where("deals.lead_id = ?", query.LeadID)
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN leads ON leads.id = deals.lead_id").
			Where("leads.dealer_name ILIKE ? OR deals.guid ILIKE ?", search, search)
	}

	// Count on a separate session so the main query is unaffected
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
		db = db.Order("deals.created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("Lead").
		Preload("Items").
		Find(&deals).Error
	return deals, total, err
}

// HasActiveDealForLead reports whether the lead already has a deal in a
// non-terminal state. At most one such deal may exist at a time.
func (r *dealRepository) HasActiveDealForLead(ctx context.Context, leadID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("lead_id = ? AND deal_status NOT IN ?", leadID,
			[]string{models.DealStatusApproved, models.DealStatusRejected}).
		Count(&count).Error
	return count > 0, err
}

// DealStats holds the count of deals by outcome
type DealStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

func (r *dealRepository) GetStats(ctx context.Context) (*DealStats, error) {
	stats := &DealStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Select("deal_status, count(*) as count").
		Group("deal_status").
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
		case models.DealStatusApproved:
			stats.Approved = count
		case models.DealStatusRejected:
			stats.Rejected = count
		default:
			stats.Pending += count
		}
	}

	return stats, nil
}

// ApprovalRepository defines the interface for approval data access
type ApprovalRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Approval, error)
	FindByEntityAndLevel(ctx context.Context, ref models.EntityRef, level int) (*models.Approval, error)
	FindPendingByEntity(ctx context.Context, ref models.EntityRef) (*models.Approval, error)
	FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.Approval, error)
	Create(ctx context.Context, approval *models.Approval) error
	Update(ctx context.Context, approval *models.Approval) error
}

type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) FindByID(ctx context.Context, id uint) (*models.Approval, error) {
	var approval models.Approval
	err := r.db.WithContext(ctx).First(&approval, id).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindByEntityAndLevel(ctx context.Context, ref models.EntityRef, level int) (*models.Approval, error) {
	var approval models.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND level = ?", ref.Kind, ref.ID, level).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindPendingByEntity(ctx context.Context, ref models.EntityRef) (*models.Approval, error) {
	var approval models.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND status = ?", ref.Kind, ref.ID, models.ApprovalStatusPending).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.Approval, error) {
	var approvals []models.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", ref.Kind, ref.ID).
		Order("level ASC").
		Preload("Approver").
		Find(&approvals).Error
	return approvals, err
}

func (r *approvalRepository) Create(ctx context.Context, approval *models.Approval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

func (r *approvalRepository) Update(ctx context.Context, approval *models.Approval) error {
	return r.db.WithContext(ctx).Save(approval).Error
}
