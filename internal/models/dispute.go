package models

import (
	"time"
)

// OrderDispute records an unresolved damage, shortage, or delivery-failure
// case. While open it locks its order against fulfillment-affecting
// transitions.
type OrderDispute struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	OrderID          uint       `gorm:"not null;index" json:"order_id"`
	Kind             string     `gorm:"size:30;not null" json:"kind"`
	ResolutionStatus string     `gorm:"default:open;index" json:"resolution_status"`
	Details          string     `gorm:"type:text" json:"details"`
	RaisedByID       uint       `gorm:"index" json:"raised_by_id"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	Order    Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	RaisedBy User  `gorm:"foreignKey:RaisedByID" json:"raised_by,omitempty"`
}

// TableName specifies the table name for OrderDispute
func (OrderDispute) TableName() string {
	return "order_disputes"
}

// Dispute kind constants
const (
	DisputeKindDamage          = "damage"
	DisputeKindShortage        = "shortage"
	DisputeKindDeliveryFailure = "delivery_failure"
)

// Dispute resolution constants
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"
)

// IsOpen returns true while the dispute locks the order
func (d *OrderDispute) IsOpen() bool {
	return d.ResolutionStatus == DisputeOpen
}
