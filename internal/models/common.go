package models

import (
	"time"
)

// Notification represents an in-app notification for a user
type Notification struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Title            string     `gorm:"not null" json:"title"`
	Message          string     `gorm:"not null" json:"message"`
	NotificationType *string    `gorm:"index" json:"notification_type"`
	ReadAt           *time.Time `gorm:"index" json:"read_at"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants (also used as outbound webhook event names)
const (
	NotificationTypeDealCreated     = "deal_created"
	NotificationTypeDealApproved    = "deal_approved"
	NotificationTypeDealRejected    = "deal_rejected"
	NotificationTypeOrderCreated    = "order_created"
	NotificationTypePIUploaded      = "pi_uploaded"
	NotificationTypePIApproved      = "pi_approved"
	NotificationTypePIRejected      = "pi_rejected"
	NotificationTypeInvoiceUploaded = "invoice_uploaded"
	NotificationTypeInvoiceApproved = "invoice_approved"
	NotificationTypeInvoiceRejected = "invoice_rejected"
	NotificationTypePaymentRecorded = "payment_recorded"
	NotificationTypeOrderDispatched = "order_dispatched"
	NotificationTypeSLABreached     = "sla_breached"
)

// IsRead returns true if notification has been read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkAsRead marks the notification as read
func (n *Notification) MarkAsRead() {
	now := time.Now()
	n.ReadAt = &now
}

// RefreshToken represents a JWT refresh token
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for RefreshToken
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired returns true if the refresh token has expired
func (r *RefreshToken) IsExpired() bool {
	if r.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*r.ExpiresAt)
}
