package repository

import (
	"context"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"gorm.io/gorm"
)

// InventoryRepository defines the interface for inventory item data access
type InventoryRepository interface {
	FindByID(ctx context.Context, id uint) (*models.InventoryItem, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.InventoryItem, error)
	FindBySerial(ctx context.Context, serial string) (*models.InventoryItem, error)
	List(ctx context.Context, query *InventoryQuery) ([]models.InventoryItem, int64, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, item *models.InventoryItem) error
	UpdateStatusByIDs(ctx context.Context, ids []uint, status string) error
}

// InventoryQuery extends ListQuery with inventory-specific filters
type InventoryQuery struct {
	*ListQuery
	Status string
	Model  string
}

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

func (r *inventoryRepository) FindBySerial(ctx context.Context, serial string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("serial = ?", serial).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) List(ctx context.Context, query *InventoryQuery) ([]models.InventoryItem, int64, error) {
	var items []models.InventoryItem
	var total int64

	db := r.db.WithContext(ctx).Model(&models.InventoryItem{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Model != "" {
		db = db.Where("model = ?", query.Model)
	}
	if query.Search != "" {
		db = db.Where("serial ILIKE ?", "%"+query.Search+"%")
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("created_at DESC")
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&items).Error
	return items, total, err
}

func (r *inventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepository) Update(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *inventoryRepository) UpdateStatusByIDs(ctx context.Context, ids []uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}

// ProvisionRepository defines the interface for provision data access
type ProvisionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Provision, error)
	FindByIDWithItems(ctx context.Context, id uint) (*models.Provision, error)
	List(ctx context.Context, query *ProvisionQuery) ([]models.Provision, int64, error)
	Create(ctx context.Context, provision *models.Provision) error
	Update(ctx context.Context, provision *models.Provision) error
}

// ProvisionQuery extends ListQuery with provision-specific filters
type ProvisionQuery struct {
	*ListQuery
	Status       string
	OEMAccountID uint
}

type provisionRepository struct {
	db *gorm.DB
}

// NewProvisionRepository creates a new provision repository
func NewProvisionRepository(db *gorm.DB) ProvisionRepository {
	return &provisionRepository{db: db}
}

func (r *provisionRepository) FindByID(ctx context.Context, id uint) (*models.Provision, error) {
	var provision models.Provision
	err := r.db.WithContext(ctx).First(&provision, id).Error
	if err != nil {
		return nil, err
	}
	return &provision, nil
}

func (r *provisionRepository) FindByIDWithItems(ctx context.Context, id uint) (*models.Provision, error) {
	var provision models.Provision
	err := r.db.WithContext(ctx).
		Joins("OEMAccount").
		Preload("Items.InventoryItem").
		First(&provision, id).Error
	if err != nil {
		return nil, err
	}
	return &provision, nil
}

func (r *provisionRepository) List(ctx context.Context, query *ProvisionQuery) ([]models.Provision, int64, error) {
	var provisions []models.Provision
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Provision{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.OEMAccountID > 0 {
		db = db.Where("oem_account_id = ?", query.OEMAccountID)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("created_at DESC")
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("OEMAccount").
		Preload("Items.InventoryItem").
		Find(&provisions).Error
	return provisions, total, err
}

func (r *provisionRepository) Create(ctx context.Context, provision *models.Provision) error {
	return r.db.WithContext(ctx).Create(provision).Error
}

func (r *provisionRepository) Update(ctx context.Context, provision *models.Provision) error {
	return r.db.WithContext(ctx).Save(provision).Error
}
