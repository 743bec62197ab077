package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/gridvolt/gridvolt-api/internal/models"
)

// DealFSM wraps a deal with its approval state machine
type DealFSM struct {
	deal *models.Deal
	fsm  *fsm.FSM
}

// NewDealFSM creates a new deal state machine
func NewDealFSM(deal *models.Deal) *DealFSM {
	d := &DealFSM{
		deal: deal,
	}

	d.fsm = fsm.NewFSM(
		deal.Status,
		fsm.Events{
			// pending_approval_l1 → pending_approval_l2
			{Name: "approve_l1", Src: []string{models.DealStatusPendingL1}, Dst: models.DealStatusPendingL2},

			// pending_approval_l2 → pending_approval_l3
			{Name: "approve_l2", Src: []string{models.DealStatusPendingL2}, Dst: models.DealStatusPendingL3},

			// pending_approval_l3 → approved (terminal, deal becomes immutable)
			{Name: "approve_l3", Src: []string{models.DealStatusPendingL3}, Dst: models.DealStatusApproved},

			// any pending level → rejected (terminal)
			{Name: "reject", Src: []string{models.DealStatusPendingL1, models.DealStatusPendingL2, models.DealStatusPendingL3}, Dst: models.DealStatusRejected},
		},
		fsm.Callbacks{},
	)

	return d
}

// Approve advances the deal past the given approval level
func (d *DealFSM) Approve(ctx context.Context, level int) error {
	if !d.deal.MayApprove() {
		return fmt.Errorf("deal cannot be approved in current state: %s", d.deal.Status)
	}
	if d.deal.Status != models.DealPendingStatus(level) {
		return fmt.Errorf("deal is not waiting on approval level %d (current state: %s)", level, d.deal.Status)
	}

	if err := d.fsm.Event(ctx, fmt.Sprintf("approve_l%d", level)); err != nil {
		return fmt.Errorf("failed to approve deal: %w", err)
	}

	d.deal.Status = d.fsm.Current()
	return nil
}

// Reject transitions the deal to the rejected terminal state
func (d *DealFSM) Reject(ctx context.Context) error {
	if !d.deal.MayReject() {
		return fmt.Errorf("deal cannot be rejected in current state: %s", d.deal.Status)
	}

	if err := d.fsm.Event(ctx, "reject"); err != nil {
		return fmt.Errorf("failed to reject deal: %w", err)
	}

	d.deal.Status = d.fsm.Current()
	return nil
}

// Current returns the current state
func (d *DealFSM) Current() string {
	return d.fsm.Current()
}

// Can checks if a transition is possible
func (d *DealFSM) Can(event string) bool {
	return d.fsm.Can(event)
}
