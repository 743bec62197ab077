package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/storage"
)

// memStore is a shared in-memory backing store for the fake repositories.
// Everything is stored by value; reads hand out copies so services mutate
// only what they explicitly write back, the way a real database behaves.
type memStore struct {
	mu sync.Mutex

	nextID    uint
	users     map[uint]models.User
	leads     map[uint]models.Lead
	accounts  map[uint]models.Account
	deals     map[uint]models.Deal
	approvals map[uint]models.Approval
	orders    map[uint]models.Order
	documents map[uint]models.OrderDocument
	payments  map[uint]models.OrderPayment
	disputes  map[uint]models.OrderDispute
	slas      map[uint]models.SLA
	items     map[uint]models.InventoryItem
	provs     map[uint]models.Provision
	tokens    map[string]models.RefreshToken
	audits    []models.AuditLog
	notifs    []models.Notification
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uint]models.User{},
		leads:     map[uint]models.Lead{},
		accounts:  map[uint]models.Account{},
		deals:     map[uint]models.Deal{},
		approvals: map[uint]models.Approval{},
		orders:    map[uint]models.Order{},
		documents: map[uint]models.OrderDocument{},
		payments:  map[uint]models.OrderPayment{},
		disputes:  map[uint]models.OrderDispute{},
		slas:      map[uint]models.SLA{},
		items:     map[uint]models.InventoryItem{},
		provs:     map[uint]models.Provision{},
		tokens:    map[string]models.RefreshToken{},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

// passthroughTxManager runs the function against the same fake repositories.
// The fakes apply writes immediately, so tests exercise the workflow logic
// without transactional rollback.
type passthroughTxManager struct {
	repos *repository.Repositories
}

func (m *passthroughTxManager) WithinTransaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(m.repos)
}

// --- fakes ---

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByRole(ctx context.Context, role string) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.users {
		if u.Role == role && u.Status == models.StatusActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(ctx context.Context, query *repository.UserQuery) ([]models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.s.id()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, user.ID)
	return nil
}

type fakeLeadRepo struct{ s *memStore }

func (r *fakeLeadRepo) FindByID(ctx context.Context, id uint) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.leads[id]; ok {
		cp := l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLeadRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Lead, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeLeadRepo) List(ctx context.Context, query *repository.LeadQuery) ([]models.Lead, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Lead
	for _, l := range r.s.leads {
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lead.ID == 0 {
		lead.ID = r.s.id()
	}
	r.s.leads[lead.ID] = *lead
	return nil
}

func (r *fakeLeadRepo) Update(ctx context.Context, lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.leads[lead.ID] = *lead
	return nil
}

type fakeAccountRepo struct{ s *memStore }

func (r *fakeAccountRepo) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.accounts[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) List(ctx context.Context, query *repository.AccountQuery) ([]models.Account, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Account
	for _, a := range r.s.accounts {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if account.ID == 0 {
		account.ID = r.s.id()
	}
	r.s.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[account.ID] = *account
	return nil
}

type fakeDealRepo struct{ s *memStore }

func (r *fakeDealRepo) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.deals[id]; ok {
		cp := d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDealRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Deal, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeDealRepo) Create(ctx context.Context, deal *models.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if deal.ID == 0 {
		deal.ID = r.s.id()
	}
	r.s.deals[deal.ID] = *deal
	return nil
}

func (r *fakeDealRepo) Update(ctx context.Context, deal *models.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deals[deal.ID] = *deal
	return nil
}

func (r *fakeDealRepo) List(ctx context.Context, query *repository.DealQuery) ([]models.Deal, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Deal
	for _, d := range r.s.deals {
		if query.Status != "" && !strings.Contains(query.Status, d.Status) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeDealRepo) HasActiveDealForLead(ctx context.Context, leadID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deals {
		if d.LeadID == leadID && d.Status != models.DealStatusApproved && d.Status != models.DealStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDealRepo) GetStats(ctx context.Context) (*repository.DealStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.DealStats{}
	for _, d := range r.s.deals {
		stats.Total++
		switch d.Status {
		case models.DealStatusApproved:
			stats.Approved++
		case models.DealStatusRejected:
			stats.Rejected++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

type fakeApprovalRepo struct{ s *memStore }

func (r *fakeApprovalRepo) FindByID(ctx context.Context, id uint) (*models.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.approvals[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApprovalRepo) FindByEntityAndLevel(ctx context.Context, ref models.EntityRef, level int) (*models.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.approvals {
		if a.Entity == ref && a.Level == level {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApprovalRepo) FindPendingByEntity(ctx context.Context, ref models.EntityRef) (*models.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.approvals {
		if a.Entity == ref && a.Status == models.ApprovalStatusPending {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApprovalRepo) FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Approval
	for _, a := range r.s.approvals {
		if a.Entity == ref {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r *fakeApprovalRepo) Create(ctx context.Context, approval *models.Approval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if approval.ID == 0 {
		approval.ID = r.s.id()
	}
	r.s.approvals[approval.ID] = *approval
	return nil
}

func (r *fakeApprovalRepo) Update(ctx context.Context, approval *models.Approval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.approvals[approval.ID] = *approval
	return nil
}

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.orders[id]; ok {
		cp := o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID == 0 {
		order.ID = r.s.id()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, query *repository.OrderQuery) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) FindUnpaidByAccount(ctx context.Context, accountID uint) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.orders {
		if o.OEMAccountID != accountID {
			continue
		}
		if o.PaymentStatus == models.PaymentStatusPaid {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeOrderRepo) GetStats(ctx context.Context) (*repository.OrderStats, error) {
	return &repository.OrderStats{}, nil
}

type fakeDocumentRepo struct{ s *memStore }

func (r *fakeDocumentRepo) FindByID(ctx context.Context, id uint) (*models.OrderDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.documents[id]; ok {
		cp := d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDocumentRepo) FindActive(ctx context.Context, orderID uint, kind string) (*models.OrderDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.documents {
		if d.OrderID == orderID && d.Kind == kind && d.Active {
			cp := d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDocumentRepo) FindByOrderAndKind(ctx context.Context, orderID uint, kind string) ([]models.OrderDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OrderDocument
	for _, d := range r.s.documents {
		if d.OrderID == orderID && (kind == "" || d.Kind == kind) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *fakeDocumentRepo) NextVersion(ctx context.Context, orderID uint, kind string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, d := range r.s.documents {
		if d.OrderID == orderID && d.Kind == kind && d.Version > max {
			max = d.Version
		}
	}
	return max + 1, nil
}

func (r *fakeDocumentRepo) DeactivateByOrderAndKind(ctx context.Context, orderID uint, kind string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, d := range r.s.documents {
		if d.OrderID == orderID && d.Kind == kind && d.Active {
			d.Active = false
			r.s.documents[id] = d
		}
	}
	return nil
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *models.OrderDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = r.s.id()
	}
	r.s.documents[doc.ID] = *doc
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, doc *models.OrderDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.documents[doc.ID] = *doc
	return nil
}

type fakePaymentRepo struct{ s *memStore }

func (r *fakePaymentRepo) FindByOrder(ctx context.Context, orderID uint) ([]models.OrderPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OrderPayment
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePaymentRepo) SumByOrder(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *models.OrderPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if payment.ID == 0 {
		payment.ID = r.s.id()
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

type fakeDisputeRepo struct{ s *memStore }

func (r *fakeDisputeRepo) FindByID(ctx context.Context, id uint) (*models.OrderDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.disputes[id]; ok {
		cp := d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDisputeRepo) FindOpenByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OrderDispute
	for _, d := range r.s.disputes {
		if d.OrderID == orderID && d.ResolutionStatus == models.DisputeOpen {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDisputeRepo) FindByOrder(ctx context.Context, orderID uint) ([]models.OrderDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OrderDispute
	for _, d := range r.s.disputes {
		if d.OrderID == orderID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDisputeRepo) Create(ctx context.Context, dispute *models.OrderDispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if dispute.ID == 0 {
		dispute.ID = r.s.id()
	}
	r.s.disputes[dispute.ID] = *dispute
	return nil
}

func (r *fakeDisputeRepo) Update(ctx context.Context, dispute *models.OrderDispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.disputes[dispute.ID] = *dispute
	return nil
}

type fakeSLARepo struct {
	s *memStore

	// findBreachedAsOf, when set, replaces the scan so tests can feed the
	// sweep a stale snapshot
	findBreachedAsOf func(ctx context.Context, now time.Time) ([]models.SLA, error)
}

func (r *fakeSLARepo) FindByID(ctx context.Context, id uint) (*models.SLA, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sla, ok := r.s.slas[id]; ok {
		cp := sla
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSLARepo) FindActiveByEntityStep(ctx context.Context, ref models.EntityRef, step string) (*models.SLA, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sla := range r.s.slas {
		if sla.Entity == ref && sla.Step == step && sla.Status == models.SLAStatusActive {
			cp := sla
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSLARepo) FindByEntity(ctx context.Context, ref models.EntityRef) ([]models.SLA, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SLA
	for _, sla := range r.s.slas {
		if sla.Entity == ref {
			out = append(out, sla)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSLARepo) FindBreachedAsOf(ctx context.Context, now time.Time) ([]models.SLA, error) {
	if r.findBreachedAsOf != nil {
		return r.findBreachedAsOf(ctx, now)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SLA
	for _, sla := range r.s.slas {
		if sla.Status == models.SLAStatusActive && sla.Deadline.Before(now) {
			out = append(out, sla)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (r *fakeSLARepo) List(ctx context.Context, query *repository.SLAQuery) ([]models.SLA, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SLA
	for _, sla := range r.s.slas {
		if query.Status != "" && sla.Status != query.Status {
			continue
		}
		out = append(out, sla)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSLARepo) Create(ctx context.Context, sla *models.SLA) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sla.ID == 0 {
		sla.ID = r.s.id()
	}
	r.s.slas[sla.ID] = *sla
	return nil
}

func (r *fakeSLARepo) Update(ctx context.Context, sla *models.SLA) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.slas[sla.ID] = *sla
	return nil
}

type fakeInventoryRepo struct{ s *memStore }

func (r *fakeInventoryRepo) FindByID(ctx context.Context, id uint) (*models.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i, ok := r.s.items[id]; ok {
		cp := i
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInventoryRepo) FindByIDs(ctx context.Context, ids []uint) ([]models.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.InventoryItem
	for _, id := range ids {
		if i, ok := r.s.items[id]; ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *fakeInventoryRepo) FindBySerial(ctx context.Context, serial string) (*models.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.items {
		if i.Serial == serial {
			cp := i
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInventoryRepo) List(ctx context.Context, query *repository.InventoryQuery) ([]models.InventoryItem, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.InventoryItem
	for _, i := range r.s.items {
		out = append(out, i)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInventoryRepo) Create(ctx context.Context, item *models.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item.ID == 0 {
		item.ID = r.s.id()
	}
	r.s.items[item.ID] = *item
	return nil
}

func (r *fakeInventoryRepo) Update(ctx context.Context, item *models.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.items[item.ID] = *item
	return nil
}

func (r *fakeInventoryRepo) UpdateStatusByIDs(ctx context.Context, ids []uint, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if i, ok := r.s.items[id]; ok {
			i.Status = status
			r.s.items[id] = i
		}
	}
	return nil
}

type fakeProvisionRepo struct{ s *memStore }

func (r *fakeProvisionRepo) FindByID(ctx context.Context, id uint) (*models.Provision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.provs[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProvisionRepo) FindByIDWithItems(ctx context.Context, id uint) (*models.Provision, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProvisionRepo) List(ctx context.Context, query *repository.ProvisionQuery) ([]models.Provision, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Provision
	for _, p := range r.s.provs {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProvisionRepo) Create(ctx context.Context, provision *models.Provision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if provision.ID == 0 {
		provision.ID = r.s.id()
	}
	r.s.provs[provision.ID] = *provision
	return nil
}

func (r *fakeProvisionRepo) Update(ctx context.Context, provision *models.Provision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing := r.s.provs[provision.ID]
	if provision.Items == nil {
		provision.Items = existing.Items
	}
	r.s.provs[provision.ID] = *provision
	return nil
}

type fakeAuditRepo struct{ s *memStore }

func (r *fakeAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = r.s.id()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]models.AuditLog(nil), r.s.audits...)
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) FindByEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AuditLog
	for _, a := range r.s.audits {
		if a.Entity == entity && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct{ s *memStore }

func (r *fakeNotificationRepo) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifs {
		if n.ID == id {
			cp := n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) FindByUser(ctx context.Context, userID uint, unreadOnly bool, query *repository.ListQuery) ([]models.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for _, n := range r.s.notifs {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifs {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification.ID = r.s.id()
	r.s.notifs = append(r.s.notifs, *notification)
	return nil
}

func (r *fakeNotificationRepo) Update(ctx context.Context, notification *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notifs {
		if n.ID == notification.ID {
			r.s.notifs[i] = *notification
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for i, n := range r.s.notifs {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			r.s.notifs[i] = n
		}
	}
	return nil
}

type fakeRefreshTokenRepo struct{ s *memStore }

func (r *fakeRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rt, ok := r.s.tokens[token]; ok {
		cp := rt
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if token.ID == 0 {
		token.ID = r.s.id()
	}
	r.s.tokens[token.Token] = *token
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteByUser(ctx context.Context, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, rt := range r.s.tokens {
		if rt.UserID == userID {
			delete(r.s.tokens, key)
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) Delete(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

// testEnv wires the workflow services against the in-memory fakes
type testEnv struct {
	store  *memStore
	repos  *repository.Repositories
	deal   *DealService
	order  *OrderService
	sla    *SLAService
	worker *jobs.Worker
}

func newTestEnv() *testEnv {
	return newTestEnvWithStorage(nil)
}

func newTestEnvWithStorage(store *storage.LocalStorage) *testEnv {
	s := newMemStore()
	repos := &repository.Repositories{
		User:         &fakeUserRepo{s: s},
		Lead:         &fakeLeadRepo{s: s},
		Account:      &fakeAccountRepo{s: s},
		Deal:         &fakeDealRepo{s: s},
		Approval:     &fakeApprovalRepo{s: s},
		Order:        &fakeOrderRepo{s: s},
		Document:     &fakeDocumentRepo{s: s},
		Payment:      &fakePaymentRepo{s: s},
		Dispute:      &fakeDisputeRepo{s: s},
		SLA:          &fakeSLARepo{s: s},
		Inventory:    &fakeInventoryRepo{s: s},
		Provision:    &fakeProvisionRepo{s: s},
		Audit:        &fakeAuditRepo{s: s},
		Notification: &fakeNotificationRepo{s: s},
		RefreshToken: &fakeRefreshTokenRepo{s: s},
	}
	txManager := &passthroughTxManager{repos: repos}
	worker := jobs.NewWorker(1)

	cfg := &config.Config{FromEmail: "test@gridvolt.app"}
	auditSvc := NewAuditService(repos.Audit)
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	emailSvc := NewEmailService(cfg)
	webhookSvc := NewWebhookService("")
	creditGuard := NewCreditGuard(repos.Order)
	disputeGuard := NewDisputeGuard(repos.Dispute)

	return &testEnv{
		store:  s,
		repos:  repos,
		deal:   NewDealService(repos, txManager, creditGuard, auditSvc, notificationSvc, webhookSvc, worker),
		order:  NewOrderService(repos, txManager, disputeGuard, auditSvc, notificationSvc, webhookSvc, store, worker),
		sla:    NewSLAService(repos, txManager, auditSvc, notificationSvc, emailSvc, webhookSvc),
		worker: worker,
	}
}

// seedQualifiedLead inserts a deal-ready lead and returns its ID
func (e *testEnv) seedQualifiedLead(accountID *uint) uint {
	lead := &models.Lead{
		DealerName:    "VoltEdge Motors",
		Status:        models.LeadStatusQualified,
		InterestLevel: models.InterestHot,
		AccountID:     accountID,
	}
	e.repos.Lead.Create(context.Background(), lead)
	return lead.ID
}

func dealItems() []DealItemInput {
	return []DealItemInput{
		{Description: "GV-4800 battery pack", SKU: "GV-4800", Quantity: 10, UnitPrice: decimal.NewFromInt(45000)},
	}
}
