package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/gridvolt/gridvolt-api/internal/models"
)

// OrderFSM wraps an order with its procurement state machine. The chain walks
// PI upload/approval, invoice upload/approval, payment, and dispatch; a
// rejection terminates the current document cycle and a fresh upload restarts
// it.
type OrderFSM struct {
	order *models.Order
	fsm   *fsm.FSM
}

// NewOrderFSM creates a new order state machine
func NewOrderFSM(order *models.Order) *OrderFSM {
	o := &OrderFSM{
		order: order,
	}

	o.fsm = fsm.NewFSM(
		order.Status,
		fsm.Events{
			// pi_awaited/pi_rejected → pi_approval_pending (new PI version)
			{Name: "upload_pi", Src: []string{models.OrderStatusPIAwaited, models.OrderStatusPIRejected}, Dst: models.OrderStatusPIPending},

			// PI approval chain
			{Name: "approve_pi_l1", Src: []string{models.OrderStatusPIPending}, Dst: models.OrderStatusPIL2Pending},
			{Name: "approve_pi_l2", Src: []string{models.OrderStatusPIL2Pending}, Dst: models.OrderStatusPIL3Pending},
			{Name: "approve_pi_l3", Src: []string{models.OrderStatusPIL3Pending}, Dst: models.OrderStatusPIApproved},

			// any PI pending level → pi_rejected
			{Name: "reject_pi", Src: []string{models.OrderStatusPIPending, models.OrderStatusPIL2Pending, models.OrderStatusPIL3Pending}, Dst: models.OrderStatusPIRejected},

			// pi_approved/invoice_rejected → invoice_approval_pending (new invoice version)
			{Name: "upload_invoice", Src: []string{models.OrderStatusPIApproved, models.OrderStatusInvoiceRejected}, Dst: models.OrderStatusInvoicePending},

			// invoice decision
			{Name: "approve_invoice", Src: []string{models.OrderStatusInvoicePending}, Dst: models.OrderStatusInvoiceApproved},
			{Name: "reject_invoice", Src: []string{models.OrderStatusInvoicePending}, Dst: models.OrderStatusInvoiceRejected},

			// payment accumulation
			{Name: "pay_partial", Src: []string{models.OrderStatusInvoiceApproved, models.OrderStatusPaymentPending}, Dst: models.OrderStatusPaymentPending},
			{Name: "pay_full", Src: []string{models.OrderStatusInvoiceApproved, models.OrderStatusPaymentPending, models.OrderStatusPaymentMade}, Dst: models.OrderStatusPaymentMade},

			// payment_made → asset_dispatched (challan upload)
			{Name: "dispatch", Src: []string{models.OrderStatusPaymentMade}, Dst: models.OrderStatusAssetDispatched},
		},
		fsm.Callbacks{},
	)

	return o
}

// UploadPI transitions the order into the PI approval chain
func (o *OrderFSM) UploadPI(ctx context.Context) error {
	if !o.order.MayUploadPI() {
		return fmt.Errorf("PI cannot be uploaded in current state: %s", o.order.Status)
	}

	if err := o.fsm.Event(ctx, "upload_pi"); err != nil {
		return fmt.Errorf("failed to upload PI: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// ApprovePI advances the order past the given PI approval level
func (o *OrderFSM) ApprovePI(ctx context.Context, level int) error {
	if o.order.Status != models.OrderPIPendingStatus(level) {
		return fmt.Errorf("order is not waiting on PI approval level %d (current state: %s)", level, o.order.Status)
	}

	if err := o.fsm.Event(ctx, fmt.Sprintf("approve_pi_l%d", level)); err != nil {
		return fmt.Errorf("failed to approve PI: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// RejectPI terminates the current PI cycle
func (o *OrderFSM) RejectPI(ctx context.Context) error {
	if err := o.fsm.Event(ctx, "reject_pi"); err != nil {
		return fmt.Errorf("failed to reject PI: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// UploadInvoice transitions the order into invoice approval
func (o *OrderFSM) UploadInvoice(ctx context.Context) error {
	if !o.order.MayUploadInvoice() {
		return fmt.Errorf("invoice cannot be uploaded in current state: %s", o.order.Status)
	}

	if err := o.fsm.Event(ctx, "upload_invoice"); err != nil {
		return fmt.Errorf("failed to upload invoice: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// ApproveInvoice transitions the order to invoice_approved
func (o *OrderFSM) ApproveInvoice(ctx context.Context) error {
	if err := o.fsm.Event(ctx, "approve_invoice"); err != nil {
		return fmt.Errorf("failed to approve invoice: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// RejectInvoice terminates the current invoice cycle
func (o *OrderFSM) RejectInvoice(ctx context.Context) error {
	if err := o.fsm.Event(ctx, "reject_invoice"); err != nil {
		return fmt.Errorf("failed to reject invoice: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// RecordPayment moves the order to payment_pending or payment_made depending
// on whether the accumulated paid total covers the order total.
func (o *OrderFSM) RecordPayment(ctx context.Context, fullyPaid bool) error {
	if !o.order.MayRecordPayment() {
		return fmt.Errorf("payment cannot be recorded in current state: %s", o.order.Status)
	}

	event := "pay_partial"
	if fullyPaid {
		event = "pay_full"
	}
	if err := o.fsm.Event(ctx, event); err != nil {
		// A further payment on an already payment_pending/payment_made order
		// keeps the same state; that is not a failure.
		if _, ok := err.(fsm.NoTransitionError); !ok {
			return fmt.Errorf("failed to record payment: %w", err)
		}
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// Dispatch transitions the order to asset_dispatched
func (o *OrderFSM) Dispatch(ctx context.Context) error {
	if !o.order.MayDispatch() {
		return fmt.Errorf("order cannot be dispatched in current state: %s", o.order.Status)
	}

	if err := o.fsm.Event(ctx, "dispatch"); err != nil {
		return fmt.Errorf("failed to dispatch order: %w", err)
	}

	o.order.Status = o.fsm.Current()
	return nil
}

// Current returns the current state
func (o *OrderFSM) Current() string {
	return o.fsm.Current()
}

// Can checks if a transition is possible
func (o *OrderFSM) Can(event string) bool {
	return o.fsm.Can(event)
}
