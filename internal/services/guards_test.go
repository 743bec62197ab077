package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/models"
)

func seedUnpaidOrder(env *testEnv, accountID uint, status string, createdAt time.Time) {
	order := &models.Order{
		GUID:          "OD-TEST",
		OEMAccountID:  accountID,
		Status:        status,
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedAt:     createdAt,
	}
	env.repos.Order.Create(context.Background(), order)
}

func TestCreditGuard_BlocksAfterThirtyDays(t *testing.T) {
	env := newTestEnv()
	guard := NewCreditGuard(env.repos.Order)
	now := time.Now()

	seedUnpaidOrder(env, 10, models.OrderStatusInvoiceApproved, now.Add(-31*24*time.Hour))

	err := guard.Check(context.Background(), 10, now)
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestCreditGuard_PassesInsideWindow(t *testing.T) {
	env := newTestEnv()
	guard := NewCreditGuard(env.repos.Order)
	now := time.Now()

	seedUnpaidOrder(env, 10, models.OrderStatusInvoiceApproved, now.Add(-29*24*time.Hour))

	assert.NoError(t, guard.Check(context.Background(), 10, now))
}

func TestCreditGuard_BlocksOrdersStalledBeforeInvoice(t *testing.T) {
	env := newTestEnv()
	guard := NewCreditGuard(env.repos.Order)
	now := time.Now()

	// The unpaid clock runs from order creation, not invoice approval
	seedUnpaidOrder(env, 10, models.OrderStatusPIAwaited, now.Add(-40*24*time.Hour))

	err := guard.Check(context.Background(), 10, now)
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestCreditGuard_NoAccountHistory(t *testing.T) {
	env := newTestEnv()
	guard := NewCreditGuard(env.repos.Order)

	assert.NoError(t, guard.Check(context.Background(), 99, time.Now()))
	assert.NoError(t, guard.Check(context.Background(), 0, time.Now()))
}

func TestDisputeGuard(t *testing.T) {
	env := newTestEnv()
	guard := NewDisputeGuard(env.repos.Dispute)
	ctx := context.Background()

	dispute := &models.OrderDispute{
		OrderID:          4,
		Kind:             models.DisputeKindDamage,
		ResolutionStatus: models.DisputeOpen,
		RaisedByID:       2,
	}
	env.repos.Dispute.Create(ctx, dispute)

	err := guard.Check(ctx, 4)
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))

	// Other orders are unaffected
	assert.NoError(t, guard.Check(ctx, 5))

	now := time.Now()
	dispute.ResolutionStatus = models.DisputeResolved
	dispute.ResolvedAt = &now
	env.repos.Dispute.Update(ctx, dispute)

	assert.NoError(t, guard.Check(ctx, 4))
}
