package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/models"
)

func TestDealService_Create_OpensLevelOneApproval(t *testing.T) {
	env := newTestEnv()
	leadID := env.seedQualifiedLead(nil)

	deal, err := env.deal.Create(context.Background(), 1, &CreateDealRequest{
		LeadID:         leadID,
		PaymentTerms:   "NET30",
		TaxRatePercent: decimal.NewFromInt(18),
		Transport:      decimal.NewFromInt(12000),
		Items:          dealItems(),
	})
	require.NoError(t, err)
	require.NotNil(t, deal)

	assert.Equal(t, models.DealStatusPendingL1, deal.Status)
	assert.Contains(t, deal.GUID, "DL-")
	assert.False(t, deal.IsImmutable)

	// Totals: 10 * 45000 = 450000, tax 18% = 81000, transport 12000 + 2160 tax
	assert.True(t, deal.LineTotal.Equal(decimal.NewFromInt(450000)), "line total %s", deal.LineTotal)
	assert.True(t, deal.TotalPayable.Equal(decimal.NewFromInt(545160)), "total payable %s", deal.TotalPayable)

	approvals, err := env.repos.Approval.FindByEntity(context.Background(), models.DealRef(deal.ID))
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, 1, approvals[0].Level)
	assert.Equal(t, models.RoleSalesHead, approvals[0].RequiredRole)
	assert.True(t, approvals[0].IsPending())

	sla, err := env.repos.SLA.FindActiveByEntityStep(context.Background(), models.DealRef(deal.ID), "deal_approval_l1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSalesHead, sla.AssigneeRole)
	assert.Equal(t, models.RoleBusinessHead, sla.EscalationRole)
}

func TestDealService_Create_LeadNotReady(t *testing.T) {
	env := newTestEnv()
	lead := &models.Lead{DealerName: "Coldstart Dealers", Status: models.LeadStatusContacted, InterestLevel: models.InterestWarm}
	env.repos.Lead.Create(context.Background(), lead)

	_, err := env.deal.Create(context.Background(), 1, &CreateDealRequest{LeadID: lead.ID, Items: dealItems()})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestDealService_Create_DuplicateActiveDeal(t *testing.T) {
	env := newTestEnv()
	leadID := env.seedQualifiedLead(nil)

	_, err := env.deal.Create(context.Background(), 1, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.NoError(t, err)

	_, err = env.deal.Create(context.Background(), 1, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestDealService_Create_CreditBlocked(t *testing.T) {
	env := newTestEnv()
	account := &models.Account{Name: "Overdue Traders", Kind: models.AccountKindDealer}
	env.repos.Account.Create(context.Background(), account)
	leadID := env.seedQualifiedLead(&account.ID)

	// An order unpaid for 31 days blocks new deals
	stale := time.Now().Add(-31 * 24 * time.Hour)
	env.repos.Order.Create(context.Background(), &models.Order{
		GUID:              "OD-STALE1",
		OEMAccountID:      account.ID,
		ProvisionID:       1,
		Status:            models.OrderStatusInvoiceApproved,
		PaymentStatus:     models.PaymentStatusUnpaid,
		TotalAmount:       decimal.NewFromInt(100000),
		InvoiceApprovedAt: &stale,
		CreatedAt:         stale,
	})

	_, err := env.deal.Create(context.Background(), 1, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestDealService_Approve_RechecksCreditAtEveryLevel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := &models.Account{Name: "Slipping Traders", Kind: models.AccountKindDealer}
	env.repos.Account.Create(ctx, account)

	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: env.seedQualifiedLead(&account.ID), Items: dealItems()})
	require.NoError(t, err)

	// Account goes delinquent after the deal is raised
	stale := time.Now().Add(-31 * 24 * time.Hour)
	env.repos.Order.Create(ctx, &models.Order{
		GUID:          "OD-STALE2",
		OEMAccountID:  account.ID,
		ProvisionID:   1,
		Status:        models.OrderStatusPIAwaited,
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedAt:     stale,
	})

	_, err = env.deal.Approve(ctx, 2, models.RoleSalesHead, deal.ID, 1, "")
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))

	got, err := env.deal.FindByID(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusPendingL1, got.Status)
}

func TestDealService_Approve_FullPipeline(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	leadID := env.seedQualifiedLead(nil)

	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: leadID, Items: dealItems()})
	require.NoError(t, err)

	deal, err = env.deal.Approve(ctx, 2, models.RoleSalesHead, deal.ID, 1, "margins check out")
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusPendingL2, deal.Status)

	deal, err = env.deal.Approve(ctx, 3, models.RoleBusinessHead, deal.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusPendingL3, deal.Status)

	deal, err = env.deal.Approve(ctx, 4, models.RoleFinanceController, deal.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusApproved, deal.Status)
	assert.True(t, deal.IsImmutable)
	require.NotNil(t, deal.InvoiceIssuedAt)

	approvals, err := env.repos.Approval.FindByEntity(ctx, models.DealRef(deal.ID))
	require.NoError(t, err)
	require.Len(t, approvals, 3)
	for _, a := range approvals {
		assert.Equal(t, models.ApprovalStatusApproved, a.Status)
		assert.NotNil(t, a.DecidedAt)
	}

	// Every approval tracker is closed out
	slas, err := env.repos.SLA.FindByEntity(ctx, models.DealRef(deal.ID))
	require.NoError(t, err)
	require.Len(t, slas, 3)
	for _, sla := range slas {
		assert.Equal(t, models.SLAStatusCompleted, sla.Status)
	}
}

func TestDealService_Approve_WrongRole(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: env.seedQualifiedLead(nil), Items: dealItems()})
	require.NoError(t, err)

	_, err = env.deal.Approve(ctx, 2, models.RoleSales, deal.ID, 1, "")
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))
}

func TestDealService_Approve_WrongLevel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: env.seedQualifiedLead(nil), Items: dealItems()})
	require.NoError(t, err)

	// Deal waits on level 1; level 2 cannot jump the queue
	_, err = env.deal.Approve(ctx, 3, models.RoleBusinessHead, deal.ID, 2, "")
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = env.deal.Approve(ctx, 2, models.RoleSalesHead, deal.ID, 4, "")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDealService_Reject_TerminalWithReason(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: env.seedQualifiedLead(nil), Items: dealItems()})
	require.NoError(t, err)

	deal, err = env.deal.Approve(ctx, 2, models.RoleSalesHead, deal.ID, 1, "")
	require.NoError(t, err)

	// Reason is mandatory
	_, err = env.deal.Reject(ctx, 3, models.RoleBusinessHead, deal.ID, "")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	deal, err = env.deal.Reject(ctx, 3, models.RoleBusinessHead, deal.ID, "pricing below floor")
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusRejected, deal.Status)
	require.NotNil(t, deal.RejectionReason)
	assert.Equal(t, "pricing below floor", *deal.RejectionReason)

	// Terminal: no further decisions allowed
	_, err = env.deal.Approve(ctx, 3, models.RoleBusinessHead, deal.ID, 2, "")
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestDealService_Update_OnlyBeforeFirstApproval(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal, err := env.deal.Create(ctx, 1, &CreateDealRequest{LeadID: env.seedQualifiedLead(nil), Items: dealItems()})
	require.NoError(t, err)

	terms := "NET45"
	deal, err = env.deal.Update(ctx, 1, deal.ID, &UpdateDealRequest{PaymentTerms: &terms})
	require.NoError(t, err)
	assert.Equal(t, "NET45", deal.PaymentTerms)

	_, err = env.deal.Approve(ctx, 2, models.RoleSalesHead, deal.ID, 1, "")
	require.NoError(t, err)

	_, err = env.deal.Update(ctx, 1, deal.ID, &UpdateDealRequest{PaymentTerms: &terms})
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestDealService_Create_WritesAuditEntry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal, err := env.deal.Create(ctx, 7, &CreateDealRequest{LeadID: env.seedQualifiedLead(nil), Items: dealItems()})
	require.NoError(t, err)

	trail, err := env.repos.Audit.FindByEntity(ctx, "Deal", deal.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, ActionCreate, trail[0].Action)
	assert.Equal(t, uint(7), trail[0].ActorID)
	assert.Contains(t, trail[0].Details, deal.GUID)
}
