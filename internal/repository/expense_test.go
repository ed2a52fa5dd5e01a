package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/monetra/backend/internal/domain"
)

func TestExpenseWhere(t *testing.T) {
	where, args := expenseWhere("u1", domain.ExpenseFilter{})
	assert.Equal(t, "user_id = $1", where)
	assert.Equal(t, []any{"u1"}, args)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	where, args = expenseWhere("u1", domain.ExpenseFilter{
		Query:       " 50%_off ",
		CategoryKey: "groceries",
		From:        &from,
		To:          &to,
	})
	assert.Equal(t,
		"user_id = $1 AND (title ILIKE $2 OR category ILIKE $2) AND category_key = $3 AND date >= $4 AND date <= $5",
		where)
	assert.Equal(t, []any{"u1", `%50\%\_off%`, "groceries", from, to}, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\\b\%c\_d`, escapeLike(`a\b%c_d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
