package http

import (
	"time"

	"budgetly/internal/analyzer"
	"budgetly/internal/core"
)

// JSON shapes of the API. Amounts are integers in minor currency units and
// dates are YYYY-MM-DD.

type userView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type budgetView struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	MonthlyBudget int64     `json:"monthly_budget"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type expenseView struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Category    string    `json:"category"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type goalView struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	TargetAmount int64     `json:"target_amount"`
	Deadline     string    `json:"deadline"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type categoryView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type analysisView struct {
	TotalSpent       int64         `json:"total_spent"`
	RemainingBudget  int64         `json:"remaining_budget"`
	Advice           []string      `json:"advice"`
	ExpensesAnalyzed []expenseView `json:"expenses_analyzed"`
}

// noExpensesView is returned with status 200 when the month is empty.
type noExpensesView struct {
	Error string `json:"error"`
	Debug []any  `json:"debug"`
}

type messageView struct {
	Message string `json:"message"`
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{ID: b.ID, UserID: b.UserID, MonthlyBudget: b.MonthlyBudget.Cents, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		UserID:      e.UserID,
		Category:    e.Category,
		Amount:      e.Amount.Cents,
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   e.CreatedAt,
	}
}

func newExpenseViews(exps []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(exps))
	for _, e := range exps {
		out = append(out, newExpenseView(e))
	}
	return out
}

func newGoalView(g core.Goal) goalView {
	return goalView{
		ID:           g.ID,
		UserID:       g.UserID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount.Cents,
		Deadline:     g.Deadline.String(),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func newGoalViews(goals []core.Goal) []goalView {
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, newGoalView(g))
	}
	return out
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, UserID: c.UserID, Name: c.Name, Priority: c.Priority, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func newCategoryViews(cats []core.Category) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryView(c))
	}
	return out
}

func newAnalysisView(r analyzer.Report) analysisView {
	advice := r.Advice
	if advice == nil {
		advice = []string{}
	}
	return analysisView{
		TotalSpent:       r.TotalSpent.Cents,
		RemainingBudget:  r.RemainingBudget.Cents,
		Advice:           advice,
		ExpensesAnalyzed: newExpenseViews(r.ExpensesAnalyzed),
	}
}
