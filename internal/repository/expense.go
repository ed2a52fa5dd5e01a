package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/monetra/backend/internal/domain"
)

const expenseColumns = `id, user_id, amount::text, date, category, category_key, title, created_at, updated_at`

// ExpenseRepository handles database operations for expenses.
type ExpenseRepository struct {
	db DBTX
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts a new expense and fills in the stored amount.
func (r *ExpenseRepository) Create(ctx context.Context, e *domain.Expense, amount float64) error {
	query := `
		INSERT INTO expenses (id, user_id, amount, date, category, category_key, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING amount::text
	`
	err := r.db.QueryRow(ctx, query,
		e.ID, e.UserID, amount, e.Date, e.Category, e.CategoryKey, e.Title, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.Amount)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// FindByID returns an expense by ID and user ID (ownership check).
func (r *ExpenseRepository) FindByID(ctx context.Context, id, userID string) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`
	e, err := scanExpense(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find expense: %w", err)
	}
	return e, nil
}

// List returns one page of a user's expenses, newest first, plus the total
// number of matching rows.
func (r *ExpenseRepository) List(ctx context.Context, userID string, f domain.ExpenseFilter) ([]*domain.Expense, int, error) {
	where, args := expenseWhere(userID, f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		expenseColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, total, nil
}

// Update writes the mutable fields of an expense. amount is nil when unchanged.
func (r *ExpenseRepository) Update(ctx context.Context, e *domain.Expense, amount *float64) error {
	query := `
		UPDATE expenses
		SET amount = COALESCE($1, amount), date = $2, category = $3, category_key = $4, title = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
		RETURNING amount::text
	`
	err := r.db.QueryRow(ctx, query,
		amount, e.Date, e.Category, e.CategoryKey, e.Title, e.UpdatedAt, e.ID, e.UserID,
	).Scan(&e.Amount)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete removes an expense owned by userID and reports whether a row went away.
func (r *ExpenseRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CategoryTotals aggregates spending per category key within the filter's date range.
func (r *ExpenseRepository) CategoryTotals(ctx context.Context, userID string, f domain.ExpenseFilter) ([]domain.CategoryTotal, string, error) {
	where, args := expenseWhere(userID, domain.ExpenseFilter{From: f.From, To: f.To})

	query := `
		SELECT category_key, MIN(category), SUM(amount)::numeric(14,2)::text, COUNT(*)
		FROM expenses WHERE ` + where + `
		GROUP BY category_key
		ORDER BY SUM(amount) DESC, category_key
	`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	defer rows.Close()

	totals := []domain.CategoryTotal{}
	for rows.Next() {
		var t domain.CategoryTotal
		if err := rows.Scan(&t.CategoryKey, &t.Category, &t.Total, &t.Count); err != nil {
			return nil, "", fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to iterate category totals: %w", err)
	}

	var grand string
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::numeric(14,2)::text FROM expenses WHERE `+where, args...).Scan(&grand); err != nil {
		return nil, "", fmt.Errorf("failed to total expenses: %w", err)
	}
	return totals, grand, nil
}

func expenseWhere(userID string, f domain.ExpenseFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR category ILIKE $%d)", len(args), len(args)))
	}
	if f.CategoryKey != "" {
		args = append(args, f.CategoryKey)
		conds = append(conds, fmt.Sprintf("category_key = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Date, &e.Category, &e.CategoryKey, &e.Title, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
