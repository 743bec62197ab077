package models

import (
	"time"
)

// OrderDocument is one version of a PI, invoice, or challan attached to an
// order. Uploading a new version deactivates the previous active one in the
// same transaction; rows are never deleted, so the full history is retained.
type OrderDocument struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	Kind         string    `gorm:"size:20;not null;index" json:"kind"`
	Version      int       `gorm:"not null" json:"version"`
	URL          string    `gorm:"not null" json:"url"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	Approved     bool      `gorm:"default:false" json:"approved"`
	UploadedByID uint      `gorm:"index" json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Associations
	UploadedBy User `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}

// TableName specifies the table name for OrderDocument
func (OrderDocument) TableName() string {
	return "order_documents"
}

// Document kind constants
const (
	DocumentKindPI      = "pi"
	DocumentKindInvoice = "invoice"
	DocumentKindChallan = "challan"
)
