package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is one physical battery unit tracked from inspection to
// delivery. Order creation reserves available items atomically.
type InventoryItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Serial    string          `gorm:"uniqueIndex;not null" json:"serial"`
	Model     string          `gorm:"index" json:"model"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"unit_price"`
	Status    string          `gorm:"default:inspection_pending;index" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for InventoryItem
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// Inventory status constants
const (
	ItemStatusInspectionPending = "inspection_pending"
	ItemStatusAvailable         = "available"
	ItemStatusReserved          = "reserved"
	ItemStatusInTransit         = "in_transit"
	ItemStatusDelivered         = "delivered"
)

// IsAvailable returns true when the item passed inspection and is unreserved
func (i *InventoryItem) IsAvailable() bool {
	return i.Status == ItemStatusAvailable
}

// Provision is a procurement request against an OEM. Once every referenced
// item passes pre-delivery inspection it can be converted into an Order.
type Provision struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OEMAccountID uint      `gorm:"column:oem_account_id;not null;index" json:"oem_account_id"`
	CreatorID    *uint     `gorm:"index" json:"creator_id"`
	Status       string    `gorm:"default:open;index" json:"status"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Associations
	OEMAccount Account         `gorm:"foreignKey:OEMAccountID" json:"oem_account,omitempty"`
	Items      []ProvisionItem `gorm:"foreignKey:ProvisionID" json:"items,omitempty"`
}

// TableName specifies the table name for Provision
func (Provision) TableName() string {
	return "provisions"
}

// Provision status constants
const (
	ProvisionStatusOpen    = "open"
	ProvisionStatusOrdered = "ordered"
	ProvisionStatusClosed  = "closed"
)

// ProvisionItem links a provision to one inventory item.
type ProvisionItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProvisionID     uint      `gorm:"not null;index" json:"provision_id"`
	InventoryItemID uint      `gorm:"not null;index" json:"inventory_item_id"`
	CreatedAt       time.Time `json:"created_at"`

	// Associations
	InventoryItem InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
}

// TableName specifies the table name for ProvisionItem
func (ProvisionItem) TableName() string {
	return "provision_items"
}
