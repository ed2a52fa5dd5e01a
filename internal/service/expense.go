package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/monetra/backend/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*limit inside a Postgres integer OFFSET.
	maxPage = math.MaxInt32 / maxPageSize
)

// ExpenseService manages a user's expenses and balance.
type ExpenseService struct {
	expenses ExpenseStore
	balances BalanceStore
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenses ExpenseStore, balances BalanceStore) *ExpenseService {
	return &ExpenseService{expenses: expenses, balances: balances}
}

// Add records a new expense for userID.
func (s *ExpenseService) Add(ctx context.Context, userID string, req *domain.AddExpenseRequest) (*domain.Expense, error) {
	req.Category = strings.TrimSpace(req.Category)
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e := &domain.Expense{
		ID:          domain.NewID(),
		UserID:      userID,
		Date:        req.Date.UTC(),
		Category:    req.Category,
		CategoryKey: CategoryKey(req.Category),
		Title:       req.Title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.expenses.Create(ctx, e, req.Amount); err != nil {
		return nil, domain.ErrInternal("failed to add expense", err)
	}
	return e, nil
}

// List returns one page of userID's expenses.
func (s *ExpenseService) List(ctx context.Context, userID string, f domain.ExpenseFilter) (*domain.ExpenseList, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		return nil, domain.ErrBadRequest("page is out of range")
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.CategoryKey != "" {
		f.CategoryKey = CategoryKey(f.CategoryKey)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.ErrBadRequest("'to' must not be before 'from'")
	}

	expenses, total, err := s.expenses.List(ctx, userID, f)
	if err != nil {
		return nil, domain.ErrInternal("failed to list expenses", err)
	}
	return &domain.ExpenseList{Expenses: expenses, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Update applies a partial update to one of userID's expenses.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	if !domain.IsID(id) {
		return nil, domain.ErrBadRequest("Invalid ID format")
	}
	if req.Category != nil {
		*req.Category = strings.TrimSpace(*req.Category)
	}
	if req.Title != nil {
		*req.Title = strings.TrimSpace(*req.Title)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	e, err := s.expenses.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find expense", err)
	}
	if e == nil {
		return nil, domain.ErrNotFound("expense not found")
	}

	if req.Date != nil {
		e.Date = req.Date.UTC()
	}
	if req.Category != nil {
		e.Category = *req.Category
		e.CategoryKey = CategoryKey(*req.Category)
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	e.UpdatedAt = time.Now().UTC()

	if err := s.expenses.Update(ctx, e, req.Amount); err != nil {
		return nil, domain.ErrInternal("failed to update expense", err)
	}
	return e, nil
}

// Delete removes one of userID's expenses.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if !domain.IsID(id) {
		return domain.ErrBadRequest("Invalid ID format")
	}
	deleted, err := s.expenses.Delete(ctx, id, userID)
	if err != nil {
		return domain.ErrInternal("failed to delete expense", err)
	}
	if !deleted {
		return domain.ErrNotFound("expense not found")
	}
	return nil
}

// Summary aggregates userID's spending per category between from and to.
func (s *ExpenseService) Summary(ctx context.Context, userID string, from, to *time.Time) (*domain.ExpenseSummary, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrBadRequest("'to' must not be before 'from'")
	}
	totals, grand, err := s.expenses.CategoryTotals(ctx, userID, domain.ExpenseFilter{From: from, To: to})
	if err != nil {
		return nil, domain.ErrInternal("failed to summarize expenses", err)
	}
	return &domain.ExpenseSummary{Categories: totals, Total: grand, From: from, To: to}, nil
}

// SetBalance records userID's opening balance.
func (s *ExpenseService) SetBalance(ctx context.Context, userID string, req *domain.SetBalanceRequest) (*domain.Balance, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.balances.Set(ctx, userID, *req.Amount); err != nil {
		return nil, domain.ErrInternal("failed to set balance", err)
	}
	return s.Balance(ctx, userID)
}

// Balance returns userID's opening balance against total spending.
func (s *ExpenseService) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	bal, err := s.balances.Get(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to read balance", err)
	}
	return bal, nil
}

// CategoryKey folds a free-form category into the key used for grouping,
// so "Food & Drinks" and "food and drinks" land together.
func CategoryKey(category string) string {
	key := slug.Make(category)
	if key == "" {
		return "other"
	}
	return key
}
