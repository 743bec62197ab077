package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/statemachine"
	"github.com/gridvolt/gridvolt-api/internal/storage"
	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// OrderService owns the procurement order pipeline: PI upload and 3-level
// approval, invoice upload and approval, payment recording, and challan-backed
// dispatch. Each transition commits atomically with its document versions,
// approval rows, SLA tracker moves and audit entry.
type OrderService struct {
	repos        *repository.Repositories
	txManager    repository.TxManager
	disputeGuard *DisputeGuard
	audit        *AuditService
	notification *NotificationService
	webhook      *WebhookService
	storage      *storage.LocalStorage
	worker       *jobs.Worker
}

// NewOrderService creates a new order service
func NewOrderService(
	repos *repository.Repositories,
	txManager repository.TxManager,
	disputeGuard *DisputeGuard,
	audit *AuditService,
	notification *NotificationService,
	webhook *WebhookService,
	store *storage.LocalStorage,
	worker *jobs.Worker,
) *OrderService {
	return &OrderService{
		repos:        repos,
		txManager:    txManager,
		disputeGuard: disputeGuard,
		audit:        audit,
		notification: notification,
		webhook:      webhook,
		storage:      store,
		worker:       worker,
	}
}

// CreateOrderRequest carries the input for converting a provision to an order
type CreateOrderRequest struct {
	ProvisionID  uint   `json:"provision_id" binding:"required"`
	PaymentTerms string `json:"payment_terms"`
}

// CreateFromProvision converts an open provision into an order. Every
// referenced inventory item must be available; the items are reserved and
// snapshotted onto the order atomically, and the PI upload SLA opens.
func (s *OrderService) CreateFromProvision(ctx context.Context, actorID uint, req *CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		provision, err := repos.Provision.FindByIDWithItems(ctx, req.ProvisionID)
		if err != nil {
			return wrapFindErr(err, "provision %d not found", req.ProvisionID)
		}
		if provision.Status != models.ProvisionStatusOpen {
			return NewPreconditionError("provision %d is %s, only open provisions can become orders",
				provision.ID, provision.Status)
		}
		if len(provision.Items) == 0 {
			return NewPreconditionError("provision %d has no items", provision.ID)
		}

		total := decimal.Zero
		itemIDs := make([]uint, 0, len(provision.Items))
		orderItems := make([]models.OrderItem, 0, len(provision.Items))
		for _, pi := range provision.Items {
			item := pi.InventoryItem
			if !item.IsAvailable() {
				return NewPreconditionError("inventory item %s is %s, not available",
					item.Serial, item.Status)
			}
			itemIDs = append(itemIDs, item.ID)
			orderItems = append(orderItems, models.OrderItem{
				InventoryItemID: item.ID,
				Serial:          item.Serial,
				Model:           item.Model,
				Price:           item.UnitPrice,
			})
			total = total.Add(item.UnitPrice)
		}

		order = &models.Order{
			GUID:         newGUID("OD"),
			ProvisionID:  provision.ID,
			OEMAccountID: provision.OEMAccountID,
			CreatorID:    &actorID,
			PaymentTerms: req.PaymentTerms,
			Status:       models.OrderStatusPIAwaited,
			TotalAmount:  total,
			PaidAmount:   decimal.Zero,
			PaymentStatus: models.PaymentStatusUnpaid,
			Items:        orderItems,
		}
		if err := repos.Order.Create(ctx, order); err != nil {
			return err
		}

		if err := repos.Inventory.UpdateStatusByIDs(ctx, itemIDs, models.ItemStatusReserved); err != nil {
			return err
		}

		provision.Status = models.ProvisionStatusOrdered
		if err := repos.Provision.Update(ctx, provision); err != nil {
			return err
		}

		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPIUpload, now); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionCreate, "Order", order.ID, map[string]any{
			"guid":         order.GUID,
			"provision_id": provision.ID,
			"total_amount": order.TotalAmount,
			"items":        len(orderItems),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypeOrderCreated, models.RoleSales,
		fmt.Sprintf("Order %s created, awaiting proforma invoice", order.GUID))

	return order, nil
}

// UploadPI attaches a new proforma invoice version and moves the order into
// level 1 approval. Allowed from pi_awaited and pi_rejected; every upload adds
// a version, the previous active one is deactivated, never deleted.
func (s *OrderService) UploadPI(ctx context.Context, actorID uint, orderID uint, file multipart.File, header *multipart.FileHeader) (*models.Order, error) {
	url, err := s.storeDocument(file, header, models.DocumentKindPI)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	now := time.Now()

	err = s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.UploadPI(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		doc, err := s.addDocumentVersion(ctx, repos, order.ID, models.DocumentKindPI, url, actorID)
		if err != nil {
			return err
		}
		order.LatestPIURL = &doc.URL

		stage := models.PipelineStage(models.OrderPIPipeline, 1)
		approval := &models.Approval{
			Entity:       models.OrderRef(order.ID),
			Level:        stage.Level,
			RequiredRole: stage.RequiredRole,
			Status:       models.ApprovalStatusPending,
		}
		if err := repos.Approval.Create(ctx, approval); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPIUpload, now); err != nil {
			return err
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionUpload, "Order", order.ID, map[string]any{
			"kind":    models.DocumentKindPI,
			"version": doc.Version,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypePIUploaded, models.RoleSalesHead,
		fmt.Sprintf("Order %s proforma invoice awaits level 1 approval", order.GUID))

	return order, nil
}

// ApprovePI decides one level of the PI approval chain. Level 3 approval
// marks the active PI document approved and opens the invoice window.
func (s *OrderService) ApprovePI(ctx context.Context, actorID uint, actorRole string, orderID uint, level int, comments string) (*models.Order, error) {
	stage := models.PipelineStage(models.OrderPIPipeline, level)
	if stage == nil {
		return nil, NewValidationError("invalid approval level %d", level)
	}
	if !stage.Allows(actorRole) {
		return nil, NewPermissionError("role %s may not approve PI level %d", actorRole, level)
	}

	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}
		if order.Status != models.OrderPIPendingStatus(level) {
			return NewConflictError("order %d is not waiting on PI level %d (current: %s)",
				orderID, level, order.Status)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.ApprovePI(ctx, level); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval, err := repos.Approval.FindPendingByEntity(ctx, models.OrderRef(order.ID))
		if err != nil {
			return wrapFindErr(err, "pending approval for order %d not found", orderID)
		}
		if approval.Level != level {
			return NewConflictError("order %d pending approval is level %d, not %d",
				orderID, approval.Level, level)
		}
		approval.Status = models.ApprovalStatusApproved
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.Comments = comments
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if order.Status == models.OrderStatusPIApproved {
			if err := s.markActiveDocApproved(ctx, repos, order.ID, models.DocumentKindPI); err != nil {
				return err
			}
			if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPendingForInvoice, now); err != nil {
				return err
			}
		} else {
			nextStage := models.PipelineStage(models.OrderPIPipeline, level+1)
			next := &models.Approval{
				Entity:       models.OrderRef(order.ID),
				Level:        nextStage.Level,
				RequiredRole: nextStage.RequiredRole,
				Status:       models.ApprovalStatusPending,
			}
			if err := repos.Approval.Create(ctx, next); err != nil {
				return err
			}
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionApprove, "Order", order.ID, map[string]any{
			"kind":       models.DocumentKindPI,
			"level":      level,
			"new_status": order.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusPIApproved {
		s.notifyAfterCommit(order, models.NotificationTypePIApproved, models.RoleSales,
			fmt.Sprintf("Order %s proforma invoice fully approved, invoice expected", order.GUID))
	} else {
		nextStage := models.PipelineStage(models.OrderPIPipeline, level+1)
		s.notifyAfterCommit(order, models.NotificationTypePIUploaded, nextStage.RequiredRole,
			fmt.Sprintf("Order %s proforma invoice awaits level %d approval", order.GUID, level+1))
	}

	return order, nil
}

// RejectPI declines the PI at its current level and sends the order back to
// pi_rejected, from where a corrected version can be uploaded.
func (s *OrderService) RejectPI(ctx context.Context, actorID uint, actorRole string, orderID uint, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, NewValidationError("a rejection reason is required")
	}

	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		approval, err := repos.Approval.FindPendingByEntity(ctx, models.OrderRef(order.ID))
		if err != nil {
			return wrapFindErr(err, "pending approval for order %d not found", orderID)
		}
		stage := models.PipelineStage(models.OrderPIPipeline, approval.Level)
		if stage == nil || !stage.Allows(actorRole) {
			return NewPermissionError("role %s may not decide PI level %d", actorRole, approval.Level)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.RejectPI(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval.Status = models.ApprovalStatusRejected
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.RejectionReason = reason
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		// The correction loop reopens the upload obligation
		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPIUpload, now); err != nil {
			return err
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionReject, "Order", order.ID, map[string]any{
			"kind":   models.DocumentKindPI,
			"level":  approval.Level,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypePIRejected, models.RoleSales,
		fmt.Sprintf("Order %s proforma invoice rejected: %s", order.GUID, reason))

	return order, nil
}

// UploadInvoice attaches a new invoice version and opens its single-level
// approval. Allowed from pi_approved and invoice_rejected.
func (s *OrderService) UploadInvoice(ctx context.Context, actorID uint, orderID uint, file multipart.File, header *multipart.FileHeader) (*models.Order, error) {
	url, err := s.storeDocument(file, header, models.DocumentKindInvoice)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	now := time.Now()

	err = s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.UploadInvoice(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		doc, err := s.addDocumentVersion(ctx, repos, order.ID, models.DocumentKindInvoice, url, actorID)
		if err != nil {
			return err
		}
		order.LatestInvoiceURL = &doc.URL

		approval := &models.Approval{
			Entity:       models.OrderRef(order.ID),
			Level:        models.InvoiceStage.Level,
			RequiredRole: models.InvoiceStage.RequiredRole,
			Status:       models.ApprovalStatusPending,
		}
		if err := repos.Approval.Create(ctx, approval); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPendingForInvoice, now); err != nil {
			return err
		}
		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepInvoiceApproval, now); err != nil {
			return err
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionUpload, "Order", order.ID, map[string]any{
			"kind":    models.DocumentKindInvoice,
			"version": doc.Version,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypeInvoiceUploaded, models.InvoiceStage.RequiredRole,
		fmt.Sprintf("Order %s invoice awaits approval", order.GUID))

	return order, nil
}

// ApproveInvoice clears the invoice and opens the payment window. The unpaid
// clock for the credit guard starts here.
func (s *OrderService) ApproveInvoice(ctx context.Context, actorID uint, actorRole string, orderID uint, comments string) (*models.Order, error) {
	if !models.InvoiceStage.Allows(actorRole) {
		return nil, NewPermissionError("role %s may not approve invoices", actorRole)
	}

	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.ApproveInvoice(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval, err := repos.Approval.FindPendingByEntity(ctx, models.OrderRef(order.ID))
		if err != nil {
			return wrapFindErr(err, "pending approval for order %d not found", orderID)
		}
		approval.Status = models.ApprovalStatusApproved
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.Comments = comments
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if err := s.markActiveDocApproved(ctx, repos, order.ID, models.DocumentKindInvoice); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepInvoiceApproval, now); err != nil {
			return err
		}
		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepProcurementPayment, now); err != nil {
			return err
		}

		order.InvoiceApprovedAt = &now
		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionApprove, "Order", order.ID, map[string]any{
			"kind":       models.DocumentKindInvoice,
			"new_status": order.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypeInvoiceApproved, models.RoleFinanceController,
		fmt.Sprintf("Order %s invoice approved, payment due", order.GUID))

	return order, nil
}

// RejectInvoice declines the invoice; a corrected version can be re-uploaded.
func (s *OrderService) RejectInvoice(ctx context.Context, actorID uint, actorRole string, orderID uint, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, NewValidationError("a rejection reason is required")
	}
	if !models.InvoiceStage.Allows(actorRole) {
		return nil, NewPermissionError("role %s may not decide invoices", actorRole)
	}

	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.RejectInvoice(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		approval, err := repos.Approval.FindPendingByEntity(ctx, models.OrderRef(order.ID))
		if err != nil {
			return wrapFindErr(err, "pending approval for order %d not found", orderID)
		}
		approval.Status = models.ApprovalStatusRejected
		approval.ApproverID = &actorID
		approval.DecidedAt = &now
		approval.RejectionReason = reason
		if err := repos.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepInvoiceApproval, now); err != nil {
			return err
		}
		// Back to waiting on a corrected invoice
		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepPendingForInvoice, now); err != nil {
			return err
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionReject, "Order", order.ID, map[string]any{
			"kind":   models.DocumentKindInvoice,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypeInvoiceRejected, models.RoleSales,
		fmt.Sprintf("Order %s invoice rejected: %s", order.GUID, reason))

	return order, nil
}

// RecordPaymentRequest carries one payment transaction
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
}

// RecordPayment adds a payment row and recomputes the order's paid aggregate
// from the stored rows. Partial payments keep the order in payment_pending;
// once the aggregate covers the total the order becomes payment_made. Blocked
// while the order has unresolved disputes.
func (s *OrderService) RecordPayment(ctx context.Context, actorID uint, orderID uint, req *RecordPaymentRequest) (*models.Order, error) {
	if !req.Amount.IsPositive() {
		return nil, NewValidationError("payment amount must be positive")
	}

	var order *models.Order
	now := time.Now()

	err := s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByID(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}
		if !order.MayRecordPayment() {
			return NewPreconditionError("order %d cannot accept payments in state %s",
				orderID, order.Status)
		}

		// Payments settle the approved invoice, never a pending draft
		invoice, err := repos.Document.FindActive(ctx, order.ID, models.DocumentKindInvoice)
		if err != nil {
			return wrapFindErr(err, "order %d has no invoice on file", orderID)
		}
		if !invoice.Approved {
			return NewPreconditionError("order %d invoice is not approved", orderID)
		}

		if err := s.disputeGuard.Check(ctx, order.ID); err != nil {
			return err
		}

		payment := &models.OrderPayment{
			OrderID:      order.ID,
			Amount:       req.Amount,
			Reference:    req.Reference,
			RecordedByID: actorID,
		}
		if err := repos.Payment.Create(ctx, payment); err != nil {
			return err
		}

		paid, err := repos.Payment.SumByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		order.PaidAmount = paid

		fullyPaid := order.IsFullyPaid()
		machine := statemachine.NewOrderFSM(order)
		if err := machine.RecordPayment(ctx, fullyPaid); err != nil {
			return NewPreconditionError("%v", err)
		}

		switch {
		case fullyPaid:
			order.PaymentStatus = models.PaymentStatusPaid
		case paid.IsPositive():
			order.PaymentStatus = models.PaymentStatusPartial
		default:
			order.PaymentStatus = models.PaymentStatusUnpaid
		}

		if fullyPaid {
			if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepProcurementPayment, now); err != nil {
				return err
			}
			if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepChallanUpload, now); err != nil {
				return err
			}
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionPayment, "Order", order.ID, map[string]any{
			"amount":         req.Amount,
			"paid_total":     paid,
			"payment_status": order.PaymentStatus,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypePaymentRecorded, models.RoleFinanceController,
		fmt.Sprintf("Payment of %s recorded on order %s (%s)", req.Amount, order.GUID, order.PaymentStatus))

	return order, nil
}

// UploadChallan attaches the delivery challan and dispatches the order. Only
// inventory managers (or admin) may do this, and only once the order is fully
// paid. Reserved items move to in transit and the GRN obligation opens.
func (s *OrderService) UploadChallan(ctx context.Context, actorID uint, actorRole string, orderID uint, file multipart.File, header *multipart.FileHeader) (*models.Order, error) {
	allowed := false
	for _, role := range models.ChallanRoles {
		if actorRole == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, NewPermissionError("role %s may not upload challans", actorRole)
	}

	url, err := s.storeDocument(file, header, models.DocumentKindChallan)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	now := time.Now()

	err = s.txManager.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		order, err = repos.Order.FindByIDWithDetails(ctx, orderID)
		if err != nil {
			return wrapFindErr(err, "order %d not found", orderID)
		}

		if err := s.disputeGuard.Check(ctx, order.ID); err != nil {
			return err
		}

		machine := statemachine.NewOrderFSM(order)
		if err := machine.Dispatch(ctx); err != nil {
			return NewPreconditionError("%v", err)
		}

		doc, err := s.addDocumentVersion(ctx, repos, order.ID, models.DocumentKindChallan, url, actorID)
		if err != nil {
			return err
		}

		itemIDs := make([]uint, 0, len(order.Items))
		for _, item := range order.Items {
			itemIDs = append(itemIDs, item.InventoryItemID)
		}
		if len(itemIDs) > 0 {
			if err := repos.Inventory.UpdateStatusByIDs(ctx, itemIDs, models.ItemStatusInTransit); err != nil {
				return err
			}
		}

		order.DeliveryStatus = models.DeliveryInTransit
		if err := CompleteTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepChallanUpload, now); err != nil {
			return err
		}
		if err := OpenTracker(ctx, repos, models.OrderRef(order.ID), models.SLAStepGRNCreation, now); err != nil {
			return err
		}

		if err := repos.Order.Update(ctx, order); err != nil {
			return err
		}

		return s.audit.Log(ctx, repos.Audit, actorID, ActionDispatch, "Order", order.ID, map[string]any{
			"kind":    models.DocumentKindChallan,
			"version": doc.Version,
			"items":   len(itemIDs),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAfterCommit(order, models.NotificationTypeOrderDispatched, models.RoleBusinessHead,
		fmt.Sprintf("Order %s dispatched, goods in transit", order.GUID))

	return order, nil
}

// FindByID returns an order with its items, documents and payments
func (s *OrderService) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.repos.Order.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, wrapFindErr(err, "order %d not found", id)
	}
	return order, nil
}

// List returns orders with filters
func (s *OrderService) List(ctx context.Context, query *repository.OrderQuery) ([]models.Order, int64, error) {
	return s.repos.Order.List(ctx, query)
}

// Documents returns the full version history for one document kind
func (s *OrderService) Documents(ctx context.Context, orderID uint, kind string) ([]models.OrderDocument, error) {
	if _, err := s.repos.Order.FindByID(ctx, orderID); err != nil {
		return nil, wrapFindErr(err, "order %d not found", orderID)
	}
	return s.repos.Document.FindByOrderAndKind(ctx, orderID, kind)
}

// Payments returns the payment trail for one order
func (s *OrderService) Payments(ctx context.Context, orderID uint) ([]models.OrderPayment, error) {
	if _, err := s.repos.Order.FindByID(ctx, orderID); err != nil {
		return nil, wrapFindErr(err, "order %d not found", orderID)
	}
	return s.repos.Payment.FindByOrder(ctx, orderID)
}

// Approvals returns the order's approval trail
func (s *OrderService) Approvals(ctx context.Context, orderID uint) ([]models.Approval, error) {
	if _, err := s.repos.Order.FindByID(ctx, orderID); err != nil {
		return nil, wrapFindErr(err, "order %d not found", orderID)
	}
	return s.repos.Approval.FindByEntity(ctx, models.OrderRef(orderID))
}

// GetStats returns order counts by pipeline stage
func (s *OrderService) GetStats(ctx context.Context) (*repository.OrderStats, error) {
	return s.repos.Order.GetStats(ctx)
}

// storeDocument validates and persists an uploaded file, returning its URL
func (s *OrderService) storeDocument(file multipart.File, header *multipart.FileHeader, kind string) (string, error) {
	if header.Size > storage.MaxFileSize() {
		return "", NewValidationError("file exceeds the %d MB limit", storage.MaxFileSize()/(1024*1024))
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.IsValidContentType(contentType) {
		return "", NewValidationError("unsupported content type %s", contentType)
	}

	url, err := s.storage.Upload(file, header, "orders/"+kind)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", kind, err)
	}
	return url, nil
}

// addDocumentVersion deactivates the current active document of the kind and
// appends the next version.
func (s *OrderService) addDocumentVersion(ctx context.Context, repos *repository.Repositories, orderID uint, kind, url string, actorID uint) (*models.OrderDocument, error) {
	if err := repos.Document.DeactivateByOrderAndKind(ctx, orderID, kind); err != nil {
		return nil, err
	}
	version, err := repos.Document.NextVersion(ctx, orderID, kind)
	if err != nil {
		return nil, err
	}
	doc := &models.OrderDocument{
		OrderID:      orderID,
		Kind:         kind,
		Version:      version,
		URL:          url,
		Active:       true,
		UploadedByID: actorID,
	}
	if err := repos.Document.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// markActiveDocApproved flags the active document of the kind as approved
func (s *OrderService) markActiveDocApproved(ctx context.Context, repos *repository.Repositories, orderID uint, kind string) error {
	doc, err := repos.Document.FindActive(ctx, orderID, kind)
	if err != nil {
		return wrapFindErr(err, "active %s document for order %d not found", kind, orderID)
	}
	doc.Approved = true
	return repos.Document.Update(ctx, doc)
}

// notifyAfterCommit fans out an in-app notification and a webhook event
// through the worker so no side effect runs inside a transaction.
func (s *OrderService) notifyAfterCommit(order *models.Order, event, role, message string) {
	orderID := order.ID
	guid := order.GUID
	status := order.Status
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notification.NotifyRole(ctx, role, "Order update", message, event); err != nil {
			logger.Warn(fmt.Sprintf("order %d notification failed: %v", orderID, err))
		}
		return s.webhook.Dispatch(ctx, event, map[string]any{
			"entity_type": models.EntityOrder,
			"entity_id":   orderID,
			"guid":        guid,
			"status":      status,
		})
	})
}
