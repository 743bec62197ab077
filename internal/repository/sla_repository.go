package repository

import (
	"context"
	"time"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"gorm.io/gorm"
)

// SLARepository defines the interface for SLA tracker data access
type SLARepository interface {
	FindByID(ctx context.Context, id uint) (*models.SLA, error)
	FindActiveByEntityStep(ctx context.Context, ref models.EntityRef, step string) (*models.SLA, error)
	FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.SLA, error)
	FindBreachedAsOf(ctx context.Context, now time.Time) ([]models.SLA, error)
	List(ctx context.Context, query *SLAQuery) ([]models.SLA, int64, error)
	Create(ctx context.Context, sla *models.SLA) error
	Update(ctx context.Context, sla *models.SLA) error
}

// SLAQuery extends ListQuery with SLA-specific filters
type SLAQuery struct {
	*ListQuery
	Status string
	Step   string
	Role   string
}

type slaRepository struct {
	db *gorm.DB
}

// NewSLARepository creates a new SLA repository
func NewSLARepository(db *gorm.DB) SLARepository {
	return &slaRepository{db: db}
}

func (r *slaRepository) FindByID(ctx context.Context, id uint) (*models.SLA, error) {
	var sla models.SLA
	err := r.db.WithContext(ctx).First(&sla, id).Error
	if err != nil {
		return nil, err
	}
	return &sla, nil
}

func (r *slaRepository) FindActiveByEntityStep(ctx context.Context, ref models.EntityRef, step string) (*models.SLA, error) {
	var sla models.SLA
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND step = ? AND status = ?",
			ref.Kind, ref.ID, step, models.SLAStatusActive).
		First(&sla).Error
	if err != nil {
		return nil, err
	}
	return &sla, nil
}

func (r *slaRepository) FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.SLA, error) {
	var slas []models.SLA
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", ref.Kind, ref.ID).
		Order("created_at ASC").
		Find(&slas).Error
	return slas, err
}

// FindBreachedAsOf returns active trackers whose deadline has passed. The
// sweep marks these breached one row at a time.
func (r *slaRepository) FindBreachedAsOf(ctx context.Context, now time.Time) ([]models.SLA, error) {
	var slas []models.SLA
	err := r.db.WithContext(ctx).
		Where("status = ? AND deadline < ?", models.SLAStatusActive, now).
		Order("deadline ASC").
		Find(&slas).Error
	return slas, err
}

func (r *slaRepository) List(ctx context.Context, query *SLAQuery) ([]models.SLA, int64, error) {
	var slas []models.SLA
	var total int64

	db := r.db.WithContext(ctx).Model(&models.SLA{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Step != "" {
		db = db.Where("step = ?", query.Step)
	}
	if query.Role != "" {
		db = db.Where("assignee_role = ?", query.Role)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("deadline ASC")
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&slas).Error
	return slas, total, err
}

func (r *slaRepository) Create(ctx context.Context, sla *models.SLA) error {
	return r.db.WithContext(ctx).Create(sla).Error
}

func (r *slaRepository) Update(ctx context.Context, sla *models.SLA) error {
	return r.db.WithContext(ctx).Save(sla).Error
}
