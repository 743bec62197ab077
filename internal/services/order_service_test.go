package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/storage"
)

// newUploadEnv builds a test env backed by a throwaway storage directory
func newUploadEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return newTestEnvWithStorage(store)
}

// pdfUpload fabricates a multipart PDF upload the way gin hands it to the
// service layer
func pdfUpload(t *testing.T, name string) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, name))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fixture"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	fh := form.File["document"][0]
	file, err := fh.Open()
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, fh
}

// seedOpenProvision inserts an OEM account, two available battery units and
// an open provision referencing them. Total value 200000.
func (e *testEnv) seedOpenProvision() *models.Provision {
	ctx := context.Background()
	oem := &models.Account{Name: "CellTech OEM", Kind: models.AccountKindOEM}
	e.repos.Account.Create(ctx, oem)

	items := []*models.InventoryItem{
		{Serial: "BP-1001", Model: "GV-4800", UnitPrice: decimal.NewFromInt(120000), Status: models.ItemStatusAvailable},
		{Serial: "BP-1002", Model: "GV-4800", UnitPrice: decimal.NewFromInt(80000), Status: models.ItemStatusAvailable},
	}
	provItems := make([]models.ProvisionItem, 0, len(items))
	for _, item := range items {
		e.repos.Inventory.Create(ctx, item)
		provItems = append(provItems, models.ProvisionItem{InventoryItemID: item.ID, InventoryItem: *item})
	}

	provision := &models.Provision{
		OEMAccountID: oem.ID,
		Status:       models.ProvisionStatusOpen,
		Items:        provItems,
	}
	e.repos.Provision.Create(ctx, provision)
	return provision
}

// orderInState walks a freshly created order through the pipeline until it
// reaches the wanted status
func orderInState(t *testing.T, env *testEnv, status string) *models.Order {
	t.Helper()
	ctx := context.Background()
	provision := env.seedOpenProvision()

	order, err := env.order.CreateFromProvision(ctx, 1, &CreateOrderRequest{ProvisionID: provision.ID, PaymentTerms: "NET30"})
	require.NoError(t, err)
	if status == models.OrderStatusPIAwaited {
		return order
	}

	file, header := pdfUpload(t, "pi.pdf")
	order, err = env.order.UploadPI(ctx, 1, order.ID, file, header)
	require.NoError(t, err)
	if status == models.OrderStatusPIPending {
		return order
	}

	order, err = env.order.ApprovePI(ctx, 2, models.RoleSalesHead, order.ID, 1, "")
	require.NoError(t, err)
	order, err = env.order.ApprovePI(ctx, 3, models.RoleBusinessHead, order.ID, 2, "")
	require.NoError(t, err)
	order, err = env.order.ApprovePI(ctx, 4, models.RoleFinanceController, order.ID, 3, "")
	require.NoError(t, err)
	if status == models.OrderStatusPIApproved {
		return order
	}

	file, header = pdfUpload(t, "invoice.pdf")
	order, err = env.order.UploadInvoice(ctx, 1, order.ID, file, header)
	require.NoError(t, err)
	if status == models.OrderStatusInvoicePending {
		return order
	}

	order, err = env.order.ApproveInvoice(ctx, 3, models.RoleBusinessHead, order.ID, "rates verified")
	require.NoError(t, err)
	if status == models.OrderStatusInvoiceApproved {
		return order
	}

	order, err = env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: order.TotalAmount, Reference: "UTR-FULL"})
	require.NoError(t, err)
	if status == models.OrderStatusPaymentMade {
		return order
	}

	t.Fatalf("unsupported target status %s", status)
	return nil
}

func TestOrderService_CreateFromProvision(t *testing.T) {
	env := newTestEnv()
	provision := env.seedOpenProvision()
	ctx := context.Background()

	order, err := env.order.CreateFromProvision(ctx, 1, &CreateOrderRequest{ProvisionID: provision.ID, PaymentTerms: "NET30"})
	require.NoError(t, err)

	assert.Contains(t, order.GUID, "OD-")
	assert.Equal(t, models.OrderStatusPIAwaited, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200000)), "total %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "BP-1001", order.Items[0].Serial)

	// Referenced units are reserved and the provision is consumed
	for _, oi := range order.Items {
		item, err := env.repos.Inventory.FindByID(ctx, oi.InventoryItemID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusReserved, item.Status)
	}
	updated, err := env.repos.Provision.FindByID(ctx, provision.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProvisionStatusOrdered, updated.Status)

	sla, err := env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPIUpload)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSales, sla.AssigneeRole)
}

func TestOrderService_CreateFromProvision_NotOpen(t *testing.T) {
	env := newTestEnv()
	provision := env.seedOpenProvision()
	ctx := context.Background()

	_, err := env.order.CreateFromProvision(ctx, 1, &CreateOrderRequest{ProvisionID: provision.ID})
	require.NoError(t, err)

	// The provision was consumed by the first order
	_, err = env.order.CreateFromProvision(ctx, 1, &CreateOrderRequest{ProvisionID: provision.ID})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestOrderService_CreateFromProvision_ItemNotAvailable(t *testing.T) {
	env := newTestEnv()
	provision := env.seedOpenProvision()
	ctx := context.Background()

	item := provision.Items[0].InventoryItem
	item.Status = models.ItemStatusInspectionPending
	env.repos.Inventory.Update(ctx, &item)
	provision.Items[0].InventoryItem = item
	env.repos.Provision.Update(ctx, provision)

	_, err := env.order.CreateFromProvision(ctx, 1, &CreateOrderRequest{ProvisionID: provision.ID})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestOrderService_UploadPI_OpensLevelOne(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIAwaited)
	ctx := context.Background()

	file, header := pdfUpload(t, "pi.pdf")
	order, err := env.order.UploadPI(ctx, 1, order.ID, file, header)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPIPending, order.Status)
	require.NotNil(t, order.LatestPIURL)

	doc, err := env.repos.Document.FindActive(ctx, order.ID, models.DocumentKindPI)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.True(t, env.order.storage.Exists(doc.URL))

	approval, err := env.repos.Approval.FindPendingByEntity(ctx, models.OrderRef(order.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, approval.Level)
	assert.Equal(t, models.RoleSalesHead, approval.RequiredRole)

	// The upload obligation is discharged
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPIUpload)
	require.Error(t, err)
}

func TestOrderService_UploadPI_RejectsBadContentType(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIAwaited)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="pi.exe"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	part.Write([]byte("MZ"))
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	fh := form.File["document"][0]
	file, err := fh.Open()
	require.NoError(t, err)
	defer file.Close()

	_, err = env.order.UploadPI(context.Background(), 1, order.ID, file, fh)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrderService_ApprovePI_FullChain(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIPending)
	ctx := context.Background()

	order, err := env.order.ApprovePI(ctx, 2, models.RoleSalesHead, order.ID, 1, "margins ok")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPIL2Pending, order.Status)

	order, err = env.order.ApprovePI(ctx, 3, models.RoleBusinessHead, order.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPIL3Pending, order.Status)

	order, err = env.order.ApprovePI(ctx, 4, models.RoleFinanceController, order.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPIApproved, order.Status)

	doc, err := env.repos.Document.FindActive(ctx, order.ID, models.DocumentKindPI)
	require.NoError(t, err)
	assert.True(t, doc.Approved)

	approvals, err := env.repos.Approval.FindByEntity(ctx, models.OrderRef(order.ID))
	require.NoError(t, err)
	require.Len(t, approvals, 3)
	for _, a := range approvals {
		assert.Equal(t, models.ApprovalStatusApproved, a.Status)
		assert.NotNil(t, a.DecidedAt)
	}

	// The invoice window opens on final approval
	sla, err := env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPendingForInvoice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSalesHead, sla.AssigneeRole)
}

func TestOrderService_ApprovePI_WrongRoleOrLevel(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIPending)
	ctx := context.Background()

	_, err := env.order.ApprovePI(ctx, 2, models.RoleSales, order.ID, 1, "")
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))

	_, err = env.order.ApprovePI(ctx, 3, models.RoleBusinessHead, order.ID, 2, "")
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = env.order.ApprovePI(ctx, 4, models.RoleFinanceController, order.ID, 5, "")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrderService_RejectPI_ReopensUploadAndVersions(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIPending)
	ctx := context.Background()

	_, err := env.order.RejectPI(ctx, 2, models.RoleSalesHead, order.ID, "")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	order, err = env.order.RejectPI(ctx, 2, models.RoleSalesHead, order.ID, "unit price mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPIRejected, order.Status)

	approvals, err := env.repos.Approval.FindByEntity(ctx, models.OrderRef(order.ID))
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, models.ApprovalStatusRejected, approvals[0].Status)
	assert.Equal(t, "unit price mismatch", approvals[0].RejectionReason)

	// The correction loop reopens the upload obligation
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPIUpload)
	require.NoError(t, err)

	// A corrected upload becomes version 2; version 1 stays as history
	file, header := pdfUpload(t, "pi-v2.pdf")
	order, err = env.order.UploadPI(ctx, 1, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPIPending, order.Status)

	docs, err := env.repos.Document.FindByOrderAndKind(ctx, order.ID, models.DocumentKindPI)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	active, err := env.repos.Document.FindActive(ctx, order.ID, models.DocumentKindPI)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
}

func TestOrderService_InvoiceFlow(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPIApproved)
	ctx := context.Background()

	file, header := pdfUpload(t, "invoice.pdf")
	order, err := env.order.UploadInvoice(ctx, 1, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInvoicePending, order.Status)
	require.NotNil(t, order.LatestInvoiceURL)

	// Invoice window closed, decision window open
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPendingForInvoice)
	require.Error(t, err)
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepInvoiceApproval)
	require.NoError(t, err)

	_, err = env.order.ApproveInvoice(ctx, 2, models.RoleSales, order.ID, "")
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))

	order, err = env.order.ApproveInvoice(ctx, 3, models.RoleBusinessHead, order.ID, "verified against PI")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInvoiceApproved, order.Status)
	require.NotNil(t, order.InvoiceApprovedAt)

	doc, err := env.repos.Document.FindActive(ctx, order.ID, models.DocumentKindInvoice)
	require.NoError(t, err)
	assert.True(t, doc.Approved)

	sla, err := env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepProcurementPayment)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFinanceController, sla.AssigneeRole)
}

func TestOrderService_RejectInvoice_ReopensWindow(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusInvoicePending)
	ctx := context.Background()

	order, err := env.order.RejectInvoice(ctx, 3, models.RoleBusinessHead, order.ID, "tax line missing")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInvoiceRejected, order.Status)

	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepPendingForInvoice)
	require.NoError(t, err)

	// A corrected invoice restarts the cycle
	file, header := pdfUpload(t, "invoice-v2.pdf")
	order, err = env.order.UploadInvoice(ctx, 1, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInvoicePending, order.Status)
}

func TestOrderService_RecordPayment_RequiresApprovedInvoice(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusInvoiceApproved)
	ctx := context.Background()

	doc, err := env.repos.Document.FindActive(ctx, order.ID, models.DocumentKindInvoice)
	require.NoError(t, err)
	doc.Approved = false
	require.NoError(t, env.repos.Document.Update(ctx, doc))

	_, err = env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(1000)})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestOrderService_RecordPayment_PartialThenFull(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusInvoiceApproved)
	ctx := context.Background()

	_, err := env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(-5)})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	order, err = env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(150000), Reference: "UTR-001"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentPending, order.Status)
	assert.Equal(t, models.PaymentStatusPartial, order.PaymentStatus)
	assert.True(t, order.PaidAmount.Equal(decimal.NewFromInt(150000)))

	order, err = env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(50000), Reference: "UTR-002"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentMade, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.PaidAmount.Equal(order.TotalAmount))

	payments, err := env.order.Payments(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	// Full payment closes the payment window and opens the challan one
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepProcurementPayment)
	require.Error(t, err)
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepChallanUpload)
	require.NoError(t, err)
}

func TestOrderService_RecordPayment_BlockedByOpenDispute(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusInvoiceApproved)
	ctx := context.Background()

	dispute := &models.OrderDispute{
		OrderID:          order.ID,
		Kind:             models.DisputeKindShortage,
		ResolutionStatus: models.DisputeOpen,
		Details:          "one unit short on delivery note",
		RaisedByID:       5,
	}
	env.repos.Dispute.Create(ctx, dispute)

	_, err := env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(200000)})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))

	// Resolving the dispute unblocks the payment
	now := time.Now()
	dispute.ResolutionStatus = models.DisputeResolved
	dispute.ResolvedAt = &now
	env.repos.Dispute.Update(ctx, dispute)

	order, err = env.order.RecordPayment(ctx, 4, order.ID, &RecordPaymentRequest{Amount: decimal.NewFromInt(200000)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentMade, order.Status)
}

func TestOrderService_UploadChallan_DispatchesOrder(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPaymentMade)
	ctx := context.Background()

	file, header := pdfUpload(t, "challan.pdf")
	_, err := env.order.UploadChallan(ctx, 5, models.RoleSales, order.ID, file, header)
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))

	file, header = pdfUpload(t, "challan.pdf")
	order, err = env.order.UploadChallan(ctx, 5, models.RoleInventoryManager, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssetDispatched, order.Status)
	assert.Equal(t, models.DeliveryInTransit, order.DeliveryStatus)

	for _, oi := range order.Items {
		item, err := env.repos.Inventory.FindByID(ctx, oi.InventoryItemID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusInTransit, item.Status)
	}

	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepChallanUpload)
	require.Error(t, err)
	_, err = env.repos.SLA.FindActiveByEntityStep(ctx, models.OrderRef(order.ID), models.SLAStepGRNCreation)
	require.NoError(t, err)
}

func TestOrderService_UploadChallan_BlockedByOpenDispute(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusPaymentMade)
	ctx := context.Background()

	dispute := &models.OrderDispute{
		OrderID:          order.ID,
		Kind:             models.DisputeKindDamage,
		ResolutionStatus: models.DisputeOpen,
		RaisedByID:       2,
	}
	env.repos.Dispute.Create(ctx, dispute)

	file, header := pdfUpload(t, "challan.pdf")
	_, err := env.order.UploadChallan(ctx, 5, models.RoleInventoryManager, order.ID, file, header)
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))

	got, err := env.repos.Order.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentMade, got.Status)

	now := time.Now()
	dispute.ResolutionStatus = models.DisputeResolved
	dispute.ResolvedAt = &now
	env.repos.Dispute.Update(ctx, dispute)

	file, header = pdfUpload(t, "challan.pdf")
	order, err = env.order.UploadChallan(ctx, 5, models.RoleInventoryManager, order.ID, file, header)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssetDispatched, order.Status)
}

func TestOrderService_UploadChallan_RequiresFullPayment(t *testing.T) {
	env := newUploadEnv(t)
	order := orderInState(t, env, models.OrderStatusInvoiceApproved)

	file, header := pdfUpload(t, "challan.pdf")
	_, err := env.order.UploadChallan(context.Background(), 5, models.RoleInventoryManager, order.ID, file, header)
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}
