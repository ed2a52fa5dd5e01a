// Package testutil provides in-memory stores for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/repository"
	"github.com/monetra/backend/internal/service"
)

// Store is an in-memory stand-in for the PostgreSQL repositories. It honours
// the same unique keys and serializes transactions the way row locks would.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users       map[string]domain.User
	plans       map[string]domain.MembershipPlan
	orders      map[string]domain.Order
	memberships map[string]domain.Membership // keyed by user ID
	expenses    map[string]expenseRow
	balances    map[string]float64
}

type expenseRow struct {
	domain.Expense
	amount float64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       map[string]domain.User{},
		plans:       map[string]domain.MembershipPlan{},
		orders:      map[string]domain.Order{},
		memberships: map[string]domain.Membership{},
		expenses:    map[string]expenseRow{},
		balances:    map[string]float64{},
	}
}

// SeedPlans inserts the default catalog.
func (s *Store) SeedPlans() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, p := range domain.DefaultPlans() {
		p.CreatedAt, p.UpdatedAt = now, now
		s.plans[p.ID] = p
	}
}

// PutPlan inserts or replaces a plan.
func (s *Store) PutPlan(p domain.MembershipPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// DeletePlan removes a plan from the catalog.
func (s *Store) DeletePlan(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, id)
}

// PutMembership inserts or replaces a user's membership.
func (s *Store) PutMembership(m domain.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.UserID] = m
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// MembershipCount returns the number of stored memberships.
func (s *Store) MembershipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memberships)
}

// Stores returns the non-transactional repository set.
func (s *Store) Stores() service.Stores {
	return service.Stores{Plans: s.Plans(), Orders: s.Orders(), Memberships: s.Memberships()}
}

// InTx runs fn with exclusive access, restoring orders and memberships if it fails.
func (s *Store) InTx(ctx context.Context, fn func(service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	orders := make(map[string]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	memberships := make(map[string]domain.Membership, len(s.memberships))
	for k, v := range s.memberships {
		memberships[k] = v
	}
	s.mu.Unlock()

	if err := fn(s.Stores()); err != nil {
		s.mu.Lock()
		s.orders, s.memberships = orders, memberships
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users returns the user repository view.
func (s *Store) Users() *Users { return &Users{s} }

// Plans returns the plan repository view.
func (s *Store) Plans() *Plans { return &Plans{s} }

// Orders returns the order repository view.
func (s *Store) Orders() *Orders { return &Orders{s} }

// Memberships returns the membership repository view.
func (s *Store) Memberships() *Memberships { return &Memberships{s} }

// Expenses returns the expense repository view.
func (s *Store) Expenses() *Expenses { return &Expenses{s} }

// Balances returns the balance repository view.
func (s *Store) Balances() *Balances { return &Balances{s} }

// Users implements service.UserStore.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *Users) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

// Plans implements service.PlanStore.
type Plans struct{ s *Store }

func (r *Plans) List(_ context.Context) ([]*domain.MembershipPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plans := make([]*domain.MembershipPlan, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		p := p
		plans = append(plans, &p)
	}
	sort.Slice(plans, func(i, j int) bool {
		a, _ := domain.MinorUnits(plans[i].Price)
		b, _ := domain.MinorUnits(plans[j].Price)
		if a != b {
			return a < b
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}

func (r *Plans) FindByID(_ context.Context, id string) (*domain.MembershipPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.plans[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// Orders implements service.OrderStore.
type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	if o.GatewayOrderID != nil {
		for _, existing := range r.s.orders {
			if existing.GatewayOrderID != nil && *existing.GatewayOrderID == *o.GatewayOrderID {
				return repository.ErrDuplicate
			}
		}
	}
	r.s.orders[o.ID] = *o
	return nil
}

func (r *Orders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (r *Orders) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.GatewayOrderID != nil && *o.GatewayOrderID == gatewayOrderID {
			return &o, nil
		}
	}
	return nil, nil
}

func (r *Orders) LockByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *Orders) LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.FindByGatewayOrderID(ctx, gatewayOrderID)
}

func (r *Orders) MarkSucceeded(_ context.Context, o *domain.Order, paymentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.orders[o.ID]
	if !ok || stored.Status != domain.OrderPending {
		return false, nil
	}
	stored.Status = domain.OrderSucceeded
	stored.GatewayPaymentID = &paymentID
	stored.UpdatedAt = time.Now().UTC()
	r.s.orders[o.ID] = stored
	o.Status, o.GatewayPaymentID, o.UpdatedAt = stored.Status, stored.GatewayPaymentID, stored.UpdatedAt
	return true, nil
}

func (r *Orders) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	orders := []*domain.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			o := o
			orders = append(orders, &o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// Memberships implements service.MembershipStore.
type Memberships struct{ s *Store }

func (r *Memberships) FindByUserID(_ context.Context, userID string) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.memberships[userID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *Memberships) Upsert(_ context.Context, m *domain.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.memberships[m.UserID]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	r.s.memberships[m.UserID] = *m
	return nil
}

func (r *Memberships) ExpireLapsed(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, m := range r.s.memberships {
		if m.Status != domain.MembershipActive || m.CurrentPeriodEnd.After(now) {
			continue
		}
		if m.AutoRenew {
			m.Status = domain.MembershipPastDue
		} else {
			m.Status = domain.MembershipExpired
		}
		m.UpdatedAt = now
		r.s.memberships[k] = m
		n++
	}
	return n, nil
}

// Expenses implements service.ExpenseStore.
type Expenses struct{ s *Store }

func (r *Expenses) Create(_ context.Context, e *domain.Expense, amount float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.Amount = money(amount)
	r.s.expenses[e.ID] = expenseRow{Expense: *e, amount: amount}
	return nil
}

func (r *Expenses) FindByID(_ context.Context, id, userID string) (*domain.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.expenses[id]
	if !ok || row.UserID != userID {
		return nil, nil
	}
	e := row.Expense
	return &e, nil
}

func (r *Expenses) List(_ context.Context, userID string, f domain.ExpenseFilter) ([]*domain.Expense, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matched := r.match(userID, f)
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < total {
		end = start + f.Limit
	}
	page := []*domain.Expense{}
	for _, row := range matched[start:end] {
		e := row.Expense
		page = append(page, &e)
	}
	return page, total, nil
}

func (r *Expenses) Update(_ context.Context, e *domain.Expense, amount *float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := r.s.expenses[e.ID]
	if amount != nil {
		row.amount = *amount
	}
	e.Amount = money(row.amount)
	row.Expense = *e
	r.s.expenses[e.ID] = row
	return nil
}

func (r *Expenses) Delete(_ context.Context, id, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.expenses[id]
	if !ok || row.UserID != userID {
		return false, nil
	}
	delete(r.s.expenses, id)
	return true, nil
}

func (r *Expenses) CategoryTotals(_ context.Context, userID string, f domain.ExpenseFilter) ([]domain.CategoryTotal, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type agg struct {
		name  string
		sum   float64
		count int
	}
	byKey := map[string]*agg{}
	var grand float64
	for _, row := range r.match(userID, domain.ExpenseFilter{From: f.From, To: f.To}) {
		a, ok := byKey[row.CategoryKey]
		if !ok {
			a = &agg{name: row.Category}
			byKey[row.CategoryKey] = a
		}
		if row.Category < a.name {
			a.name = row.Category
		}
		a.sum += row.amount
		a.count++
		grand += row.amount
	}
	totals := []domain.CategoryTotal{}
	for key, a := range byKey {
		totals = append(totals, domain.CategoryTotal{CategoryKey: key, Category: a.name, Total: money(a.sum), Count: a.count})
	}
	sort.Slice(totals, func(i, j int) bool {
		a, _ := strconv.ParseFloat(totals[i].Total, 64)
		b, _ := strconv.ParseFloat(totals[j].Total, 64)
		if a != b {
			return a > b
		}
		return totals[i].CategoryKey < totals[j].CategoryKey
	})
	return totals, money(grand), nil
}

func (r *Expenses) match(userID string, f domain.ExpenseFilter) []expenseRow {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []expenseRow
	for _, row := range r.s.expenses {
		if row.UserID != userID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(row.Title), q) && !strings.Contains(strings.ToLower(row.Category), q) {
			continue
		}
		if f.CategoryKey != "" && row.CategoryKey != f.CategoryKey {
			continue
		}
		if f.From != nil && row.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && row.Date.After(*f.To) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Balances implements service.BalanceStore.
type Balances struct{ s *Store }

func (r *Balances) Set(_ context.Context, userID string, amount float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.balances[userID] = amount
	return nil
}

func (r *Balances) Get(_ context.Context, userID string) (*domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var spent float64
	for _, row := range r.s.expenses {
		if row.UserID == userID {
			spent += row.amount
		}
	}
	bal := r.s.balances[userID]
	return &domain.Balance{Balance: money(bal), Spent: money(spent), Remaining: money(bal - spent)}, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
