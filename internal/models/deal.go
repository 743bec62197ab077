package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal is a priced sales commitment tied to one Lead, subject to 3-level
// approval. Once the final level approves, the deal is immutable.
type Deal struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	GUID            string     `gorm:"uniqueIndex" json:"guid"`
	LeadID          uint       `gorm:"not null;index" json:"lead_id"`
	CreatorID       *uint      `gorm:"index" json:"creator_id"`
	PaymentTerms    string     `json:"payment_terms"`
	Status          string     `gorm:"column:deal_status;default:pending_approval_l1;index" json:"deal_status"`
	IsImmutable     bool       `gorm:"default:false" json:"is_immutable"`
	InvoiceIssuedAt *time.Time `json:"invoice_issued_at"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`

	LineTotal      decimal.Decimal `gorm:"type:decimal(15,2)" json:"line_total"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"tax_amount"`
	Transport      decimal.Decimal `gorm:"type:decimal(15,2)" json:"transport"`
	TransportTax   decimal.Decimal `gorm:"type:decimal(15,2)" json:"transport_tax"`
	TotalPayable   decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_payable"`
	TaxRatePercent decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate_percent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Lead    Lead       `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Creator *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Items   []DealItem `gorm:"foreignKey:DealID" json:"items,omitempty"`
}

// TableName specifies the table name for Deal
func (Deal) TableName() string {
	return "deals"
}

// Deal status constants
const (
	DealStatusPendingL1 = "pending_approval_l1"
	DealStatusPendingL2 = "pending_approval_l2"
	DealStatusPendingL3 = "pending_approval_l3"
	DealStatusApproved  = "approved"
	DealStatusRejected  = "rejected"
)

// DealPendingStatus maps an approval level to the deal status awaiting it.
func DealPendingStatus(level int) string {
	switch level {
	case 1:
		return DealStatusPendingL1
	case 2:
		return DealStatusPendingL2
	default:
		return DealStatusPendingL3
	}
}

// IsTerminal returns true once the deal reached approved or rejected
func (d *Deal) IsTerminal() bool {
	return d.Status == DealStatusApproved || d.Status == DealStatusRejected
}

// MayApprove returns true if the deal is waiting on some approval level
func (d *Deal) MayApprove() bool {
	return d.Status == DealStatusPendingL1 ||
		d.Status == DealStatusPendingL2 ||
		d.Status == DealStatusPendingL3
}

// MayReject returns true if the deal can still be rejected
func (d *Deal) MayReject() bool {
	return d.MayApprove()
}

// ComputeTotals recalculates the derived totals from the line items and rates.
// All math is decimal so repeated recomputation never drifts.
func (d *Deal) ComputeTotals() {
	lineTotal := decimal.Zero
	for _, item := range d.Items {
		lineTotal = lineTotal.Add(item.LineTotal())
	}
	d.LineTotal = lineTotal
	rate := d.TaxRatePercent.Div(decimal.NewFromInt(100))
	d.TaxAmount = lineTotal.Mul(rate).Round(2)
	d.TransportTax = d.Transport.Mul(rate).Round(2)
	d.TotalPayable = lineTotal.Add(d.TaxAmount).Add(d.Transport).Add(d.TransportTax)
}

// DealItem is one priced line of a deal.
type DealItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	DealID      uint            `gorm:"not null;index" json:"deal_id"`
	Description string          `gorm:"not null" json:"description"`
	SKU         string          `json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2)" json:"unit_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for DealItem
func (DealItem) TableName() string {
	return "deal_items"
}

// LineTotal returns quantity * unit price
func (i DealItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DealResponse is the JSON response format for deals
type DealResponse struct {
	ID              uint            `json:"id"`
	GUID            string          `json:"guid"`
	LeadID          uint            `json:"lead_id"`
	DealerName      string          `json:"dealer_name,omitempty"`
	Status          string          `json:"deal_status"`
	IsImmutable     bool            `json:"is_immutable"`
	PaymentTerms    string          `json:"payment_terms"`
	LineTotal       decimal.Decimal `json:"line_total"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Transport       decimal.Decimal `json:"transport"`
	TransportTax    decimal.Decimal `json:"transport_tax"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	InvoiceIssuedAt *time.Time      `json:"invoice_issued_at"`
	Items           []DealItem      `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToResponse converts Deal to DealResponse
func (d *Deal) ToResponse() DealResponse {
	resp := DealResponse{
		ID:              d.ID,
		GUID:            d.GUID,
		LeadID:          d.LeadID,
		Status:          d.Status,
		IsImmutable:     d.IsImmutable,
		PaymentTerms:    d.PaymentTerms,
		LineTotal:       d.LineTotal,
		TaxAmount:       d.TaxAmount,
		Transport:       d.Transport,
		TransportTax:    d.TransportTax,
		TotalPayable:    d.TotalPayable,
		RejectionReason: d.RejectionReason,
		InvoiceIssuedAt: d.InvoiceIssuedAt,
		Items:           d.Items,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Lead.ID != 0 {
		resp.DealerName = d.Lead.DealerName
	}
	return resp
}
