package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a procurement commitment against an OEM, created from a Provision
// once its items pass inspection. Its status walks the PI → invoice → payment →
// dispatch chain; document history lives in versioned OrderDocument rows and
// the LatestPIURL/LatestInvoiceURL fields are read-optimizations only.
type Order struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	GUID         string `gorm:"uniqueIndex" json:"guid"`
	ProvisionID  uint   `gorm:"not null;index" json:"provision_id"`
	OEMAccountID uint   `gorm:"column:oem_account_id;not null;index" json:"oem_account_id"`
	CreatorID    *uint  `gorm:"index" json:"creator_id"`
	PaymentTerms string `json:"payment_terms"`
	Status       string `gorm:"column:order_status;default:pi_awaited;index" json:"order_status"`

	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(15,2)" json:"paid_amount"`
	PaymentStatus string          `gorm:"default:unpaid;index" json:"payment_status"`

	LatestPIURL      *string `gorm:"column:latest_pi_url" json:"latest_pi_url"`
	LatestInvoiceURL *string `gorm:"column:latest_invoice_url" json:"latest_invoice_url"`
	DeliveryStatus   string  `gorm:"default:not_dispatched" json:"delivery_status"`

	// Set when the invoice clears approval; the credit guard measures the
	// unpaid window from this instant.
	InvoiceApprovedAt *time.Time `json:"invoice_approved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Provision  Provision       `gorm:"foreignKey:ProvisionID" json:"provision,omitempty"`
	OEMAccount Account         `gorm:"foreignKey:OEMAccountID" json:"oem_account,omitempty"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Documents  []OrderDocument `gorm:"foreignKey:OrderID" json:"documents,omitempty"`
	Payments   []OrderPayment  `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// Order status constants
const (
	OrderStatusPIAwaited         = "pi_awaited"
	OrderStatusPIPending         = "pi_approval_pending"
	OrderStatusPIL2Pending       = "pi_approval_l2_pending"
	OrderStatusPIL3Pending       = "pi_approval_l3_pending"
	OrderStatusPIApproved        = "pi_approved"
	OrderStatusPIRejected        = "pi_rejected"
	OrderStatusInvoicePending    = "invoice_approval_pending"
	OrderStatusInvoiceApproved   = "invoice_approved"
	OrderStatusInvoiceRejected   = "invoice_rejected"
	OrderStatusPaymentPending    = "payment_pending"
	OrderStatusPaymentMade       = "payment_made"
	OrderStatusAssetDispatched   = "asset_dispatched"
)

// OrderPIPendingStatus maps a PI approval level to the order status awaiting it.
func OrderPIPendingStatus(level int) string {
	switch level {
	case 1:
		return OrderStatusPIPending
	case 2:
		return OrderStatusPIL2Pending
	default:
		return OrderStatusPIL3Pending
	}
}

// Payment status constants (aggregate over OrderPayment rows)
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// Delivery status constants
const (
	DeliveryNotDispatched = "not_dispatched"
	DeliveryInTransit     = "in_transit"
	DeliveryDelivered     = "delivered"
)

// MayUploadPI returns true if a (new) proforma invoice version may be uploaded
func (o *Order) MayUploadPI() bool {
	return o.Status == OrderStatusPIAwaited || o.Status == OrderStatusPIRejected
}

// MayUploadInvoice returns true if a (new) invoice version may be uploaded
func (o *Order) MayUploadInvoice() bool {
	return o.Status == OrderStatusPIApproved || o.Status == OrderStatusInvoiceRejected
}

// MayRecordPayment returns true if a payment can legally be recorded
func (o *Order) MayRecordPayment() bool {
	return o.Status == OrderStatusInvoiceApproved ||
		o.Status == OrderStatusPaymentPending ||
		o.Status == OrderStatusPaymentMade
}

// MayDispatch returns true if a challan upload may dispatch the order
func (o *Order) MayDispatch() bool {
	return o.Status == OrderStatusPaymentMade
}

// IsFullyPaid recomputes "paid" from the current aggregate, never from a flag.
func (o *Order) IsFullyPaid() bool {
	return o.PaidAmount.GreaterThanOrEqual(o.TotalAmount)
}

// OrderItem is a denormalized snapshot of an inventory line at order creation.
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	InventoryItemID uint            `gorm:"not null;index" json:"inventory_item_id"`
	Serial          string          `json:"serial"`
	Model           string          `json:"model"`
	Price           decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderPayment records one (possibly partial) payment transaction against an
// order. The order's paid total is the sum over these rows.
type OrderPayment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reference    string          `json:"reference"`
	RecordedByID uint            `gorm:"index" json:"recorded_by_id"`
	CreatedAt    time.Time       `json:"created_at"`

	// Associations
	RecordedBy User `gorm:"foreignKey:RecordedByID" json:"recorded_by,omitempty"`
}

// TableName specifies the table name for OrderPayment
func (OrderPayment) TableName() string {
	return "order_payments"
}

// OrderResponse is the JSON response format for orders
type OrderResponse struct {
	ID               uint            `json:"id"`
	GUID             string          `json:"guid"`
	ProvisionID      uint            `json:"provision_id"`
	OEMAccountID     uint            `json:"oem_account_id"`
	OEMName          string          `json:"oem_name,omitempty"`
	Status           string          `json:"order_status"`
	PaymentTerms     string          `json:"payment_terms"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentStatus    string          `json:"payment_status"`
	DeliveryStatus   string          `json:"delivery_status"`
	LatestPIURL      *string         `json:"latest_pi_url"`
	LatestInvoiceURL *string         `json:"latest_invoice_url"`
	Items            []OrderItem     `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToResponse converts Order to OrderResponse
func (o *Order) ToResponse() OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		GUID:             o.GUID,
		ProvisionID:      o.ProvisionID,
		OEMAccountID:     o.OEMAccountID,
		Status:           o.Status,
		PaymentTerms:     o.PaymentTerms,
		TotalAmount:      o.TotalAmount,
		PaidAmount:       o.PaidAmount,
		PaymentStatus:    o.PaymentStatus,
		DeliveryStatus:   o.DeliveryStatus,
		LatestPIURL:      o.LatestPIURL,
		LatestInvoiceURL: o.LatestInvoiceURL,
		Items:            o.Items,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.OEMAccount.ID != 0 {
		resp.OEMName = o.OEMAccount.Name
	}
	return resp
}
