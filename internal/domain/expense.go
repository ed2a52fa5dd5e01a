package domain

import "time"

// Expense is a single spending record owned by a user.
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      string    `json:"amount"` // numeric(12,2) rendered as text, e.g. "45.50"
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	CategoryKey string    `json:"categoryKey"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AddExpenseRequest is the validated input for recording an expense. Amounts
// must fit numeric(12,2).
type AddExpenseRequest struct {
	Amount   float64   `json:"amount" validate:"required,gt=0,lt=10000000000"`
	Date     time.Time `json:"date" validate:"required"`
	Category string    `json:"category" validate:"required,min=1,max=255"`
	Title    string    `json:"title" validate:"required,min=1,max=255"`
}

// UpdateExpenseRequest carries a partial update; nil fields are left untouched.
type UpdateExpenseRequest struct {
	Amount   *float64   `json:"amount" validate:"omitempty,gt=0,lt=10000000000"`
	Date     *time.Time `json:"date"`
	Category *string    `json:"category" validate:"omitempty,min=1,max=255"`
	Title    *string    `json:"title" validate:"omitempty,min=1,max=255"`
}

// ExpenseFilter narrows a user's expense listing.
type ExpenseFilter struct {
	Query       string
	CategoryKey string
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

// Offset returns the row offset for the filter's page.
func (f ExpenseFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// ExpenseList is one page of expenses.
type ExpenseList struct {
	Expenses []*Expense `json:"expenses"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}

// CategoryTotal aggregates a user's spending in one category.
type CategoryTotal struct {
	CategoryKey string `json:"categoryKey"`
	Category    string `json:"category"`
	Total       string `json:"total"`
	Count       int    `json:"count"`
}

// ExpenseSummary is the per-category breakdown for a date range.
type ExpenseSummary struct {
	Categories []CategoryTotal `json:"categories"`
	Total      string          `json:"total"`
	From       *time.Time      `json:"from,omitempty"`
	To         *time.Time      `json:"to,omitempty"`
}

// Balance is a user's opening balance against their recorded spending.
type Balance struct {
	Balance   string    `json:"balance"`
	Spent     string    `json:"spent"`
	Remaining string    `json:"remaining"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// SetBalanceRequest is the validated input for setting the opening balance.
type SetBalanceRequest struct {
	Amount *float64 `json:"amount" validate:"required,gte=0,lt=10000000000"`
}
