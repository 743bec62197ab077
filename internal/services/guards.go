package services

import (
	"context"
	"time"

	"github.com/gridvolt/gridvolt-api/internal/repository"
)

// creditBlockAfter is how long an order may sit unpaid before the account is
// considered credit blocked.
const creditBlockAfter = 30 * 24 * time.Hour

// CreditGuard blocks new deals and deal approvals for accounts carrying an
// order unpaid past the block window. The verdict is recomputed from order
// payment history on every check, never cached on the account.
type CreditGuard struct {
	orderRepo repository.OrderRepository
}

// NewCreditGuard creates a new credit guard
func NewCreditGuard(orderRepo repository.OrderRepository) *CreditGuard {
	return &CreditGuard{orderRepo: orderRepo}
}

// Check returns a precondition error when the account holds an order unpaid
// past the block window, whatever stage that order is stuck in. Accounts with
// no order history pass.
func (g *CreditGuard) Check(ctx context.Context, accountID uint, now time.Time) error {
	if accountID == 0 {
		return nil
	}

	orders, err := g.orderRepo.FindUnpaidByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if now.Sub(order.CreatedAt) > creditBlockAfter {
			return NewPreconditionError(
				"account %d is credit blocked: order %s unpaid for more than %d days",
				accountID, order.GUID, int(creditBlockAfter.Hours()/24))
		}
	}

	return nil
}

// DisputeGuard blocks payment recording on orders with unresolved disputes.
type DisputeGuard struct {
	disputeRepo repository.DisputeRepository
}

// NewDisputeGuard creates a new dispute guard
func NewDisputeGuard(disputeRepo repository.DisputeRepository) *DisputeGuard {
	return &DisputeGuard{disputeRepo: disputeRepo}
}

// Check returns a precondition error when the order has open disputes
func (g *DisputeGuard) Check(ctx context.Context, orderID uint) error {
	disputes, err := g.disputeRepo.FindOpenByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(disputes) > 0 {
		return NewPreconditionError(
			"order %d has %d unresolved dispute(s); resolve them before recording payments",
			orderID, len(disputes))
	}
	return nil
}
