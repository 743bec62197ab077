package models

import (
	"time"
)

// EntityKind tags the owning side of a polymorphic workflow reference.
type EntityKind string

const (
	EntityDeal  EntityKind = "deal"
	EntityOrder EntityKind = "order"
)

// EntityRef is a tagged reference to a Deal or an Order. Approval and SLA rows
// carry one instead of a loose pair of columns so callers have to switch on the
// kind explicitly.
type EntityRef struct {
	Kind EntityKind `gorm:"column:entity_type;size:20;not null;index:idx_entity" json:"entity_type"`
	ID   uint       `gorm:"column:entity_id;not null;index:idx_entity" json:"entity_id"`
}

// DealRef builds a reference to a deal
func DealRef(id uint) EntityRef {
	return EntityRef{Kind: EntityDeal, ID: id}
}

// OrderRef builds a reference to an order
func OrderRef(id uint) EntityRef {
	return EntityRef{Kind: EntityOrder, ID: id}
}

// Approval is one pending-or-decided sign-off step of a Deal or Order pipeline.
// Exactly one row exists per (entity, level); the next level's row is created
// only after this one is approved, and a decided row is never mutated again.
type Approval struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Entity          EntityRef  `gorm:"embedded" json:"entity"`
	Level           int        `gorm:"not null" json:"level"`
	RequiredRole    string     `gorm:"not null" json:"required_role"`
	Status          string     `gorm:"default:pending;index" json:"status"`
	ApproverID      *uint      `gorm:"index" json:"approver_id"`
	DecidedAt       *time.Time `json:"decided_at"`
	Comments        string     `gorm:"type:text" json:"comments"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Associations
	Approver *User `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
}

// TableName specifies the table name for Approval
func (Approval) TableName() string {
	return "approvals"
}

// Approval status constants
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// IsPending returns true if the approval has not been decided yet
func (a *Approval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

// ApprovalStage describes one level of a sign-off pipeline: which role the
// created Approval row requires, and which caller roles may decide it. The
// pipeline shape is data so tests can assert it directly.
type ApprovalStage struct {
	Level        int
	RequiredRole string
	AllowedRoles []string
}

// Allows reports whether the given caller role may decide this stage.
func (s ApprovalStage) Allows(role string) bool {
	for _, r := range s.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DealPipeline is the 3-level deal sign-off chain.
var DealPipeline = []ApprovalStage{
	{Level: 1, RequiredRole: RoleSalesHead, AllowedRoles: []string{RoleSalesHead, RoleAdmin}},
	{Level: 2, RequiredRole: RoleBusinessHead, AllowedRoles: []string{RoleBusinessHead, RoleAdmin}},
	{Level: 3, RequiredRole: RoleFinanceController, AllowedRoles: []string{RoleFinanceController, RoleAdmin}},
}

// OrderPIPipeline is the 3-level proforma invoice sign-off chain.
var OrderPIPipeline = []ApprovalStage{
	{Level: 1, RequiredRole: RoleSalesHead, AllowedRoles: []string{RoleSalesHead, RoleBusinessHead, RoleCEO, RoleAdmin}},
	{Level: 2, RequiredRole: RoleBusinessHead, AllowedRoles: []string{RoleBusinessHead, RoleCEO, RoleAdmin}},
	{Level: 3, RequiredRole: RoleFinanceController, AllowedRoles: []string{RoleFinanceController, RoleCEO, RoleAdmin}},
}

// InvoiceStage is the single-level invoice sign-off.
var InvoiceStage = ApprovalStage{
	Level:        1,
	RequiredRole: RoleSalesHead,
	AllowedRoles: []string{RoleSalesHead, RoleBusinessHead, RoleCEO, RoleAdmin},
}

// ChallanRoles are the roles permitted to upload a delivery challan.
var ChallanRoles = []string{RoleInventoryManager, RoleAdmin}

// PipelineStage returns the stage with the given level, or nil.
func PipelineStage(pipeline []ApprovalStage, level int) *ApprovalStage {
	for i := range pipeline {
		if pipeline[i].Level == level {
			return &pipeline[i]
		}
	}
	return nil
}
