package models

import (
	"time"
)

// SLA is a time-boxed obligation attached to a named workflow step of a Deal
// or Order. It is completed when the owning action happens before the
// deadline, or breached (and escalated) by the sweep once the deadline passes.
// At most one active row exists per (entity, step).
type SLA struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Entity         EntityRef  `gorm:"embedded" json:"entity"`
	Step           string     `gorm:"size:50;not null;index" json:"step"`
	Status         string     `gorm:"default:active;index" json:"status"`
	Deadline       time.Time  `gorm:"not null;index" json:"deadline"`
	AssigneeRole   string     `json:"assignee_role"`
	EscalationRole string     `json:"escalation_role"`
	CompletedAt    *time.Time `json:"completed_at"`
	EscalatedAt    *time.Time `json:"escalated_at"`
	EscalatedTo    string     `json:"escalated_to"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for SLA
func (SLA) TableName() string {
	return "slas"
}

// SLA status constants
const (
	SLAStatusActive    = "active"
	SLAStatusCompleted = "completed"
	SLAStatusBreached  = "breached"
)

// Workflow step names SLAs attach to
const (
	SLAStepPIUpload           = "pi_upload"
	SLAStepPendingForInvoice  = "pending_for_invoice"
	SLAStepInvoiceApproval    = "invoice_approval"
	SLAStepProcurementPayment = "procurement_payment"
	SLAStepChallanUpload      = "challan_upload"
	SLAStepGRNCreation        = "grn_creation"
)

// SLAStepDealApproval names the obligation for deciding a deal approval level.
func SLAStepDealApproval(level int) string {
	switch level {
	case 1:
		return "deal_approval_l1"
	case 2:
		return "deal_approval_l2"
	default:
		return "deal_approval_l3"
	}
}

// SLAWindows are the fixed deadlines per workflow step.
var SLAWindows = map[string]time.Duration{
	SLAStepPIUpload:           48 * time.Hour,
	SLAStepPendingForInvoice:  72 * time.Hour,
	SLAStepInvoiceApproval:    24 * time.Hour,
	SLAStepProcurementPayment: 5 * 24 * time.Hour,
	SLAStepChallanUpload:      48 * time.Hour,
	SLAStepGRNCreation:        72 * time.Hour,
	"deal_approval_l1":        24 * time.Hour,
	"deal_approval_l2":        24 * time.Hour,
	"deal_approval_l3":        24 * time.Hour,
}

// SLAWindow returns the configured window for a step, defaulting to 48h for
// steps without an explicit entry.
func SLAWindow(step string) time.Duration {
	if w, ok := SLAWindows[step]; ok {
		return w
	}
	return 48 * time.Hour
}

// slaRoles maps a step to the role owning it and the role a breach escalates to.
var slaRoles = map[string][2]string{
	SLAStepPIUpload:           {RoleSales, RoleSalesHead},
	SLAStepPendingForInvoice:  {RoleSalesHead, RoleBusinessHead},
	SLAStepInvoiceApproval:    {RoleSalesHead, RoleBusinessHead},
	SLAStepProcurementPayment: {RoleFinanceController, RoleCEO},
	SLAStepChallanUpload:      {RoleInventoryManager, RoleBusinessHead},
	SLAStepGRNCreation:        {RoleInventoryManager, RoleBusinessHead},
	"deal_approval_l1":        {RoleSalesHead, RoleBusinessHead},
	"deal_approval_l2":        {RoleBusinessHead, RoleFinanceController},
	"deal_approval_l3":        {RoleFinanceController, RoleCEO},
}

// SLARoles returns the assignee and escalation roles for a step
func SLARoles(step string) (assignee, escalation string) {
	if r, ok := slaRoles[step]; ok {
		return r[0], r[1]
	}
	return RoleAdmin, RoleAdmin
}

// IsActive returns true while the obligation is still open
func (s *SLA) IsActive() bool {
	return s.Status == SLAStatusActive
}

// IsBreachedAt reports whether an active SLA has passed its deadline.
func (s *SLA) IsBreachedAt(now time.Time) bool {
	return s.IsActive() && s.Deadline.Before(now)
}
