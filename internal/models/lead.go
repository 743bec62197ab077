package models

import (
	"time"
)

// Lead represents a dealer lead captured by the sales team. A Deal can only be
// raised against a qualified lead with hot interest.
type Lead struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DealerName    string    `gorm:"not null" json:"dealer_name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Region        string    `json:"region"`
	Status        string    `gorm:"default:new;index" json:"status"`
	InterestLevel string    `gorm:"default:cold;index" json:"interest_level"`
	AccountID     *uint     `gorm:"index" json:"account_id"`
	OwnerID       *uint     `gorm:"index" json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Associations
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Owner   *User    `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Deals   []Deal   `gorm:"foreignKey:LeadID" json:"deals,omitempty"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// Lead status constants
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusDropped   = "dropped"
)

// Interest level constants
const (
	InterestCold = "cold"
	InterestWarm = "warm"
	InterestHot  = "hot"
)

// IsDealReady returns true when a deal may be raised against this lead
func (l *Lead) IsDealReady() bool {
	return l.Status == LeadStatusQualified && l.InterestLevel == InterestHot
}

// Account aggregates the commercial relationship with a dealer or OEM. The
// credit guard reads an account's order payment history, never the account row
// itself.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Kind      string    `gorm:"default:dealer;index" json:"kind"`
	GSTIN     string    `gorm:"column:gstin" json:"gstin"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Orders []Order `gorm:"foreignKey:OEMAccountID" json:"orders,omitempty"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Account kind constants
const (
	AccountKindDealer = "dealer"
	AccountKindOEM    = "oem"
)
