package http

import (
	"net/http"

	"budgetly/internal/core"
)

type budgetRequest struct {
	MonthlyBudget int64 `json:"monthly_budget"`
}

type expenseRequest struct {
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.deps.Budgets.Get(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBudgetView(budget)).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	budget, err := s.deps.Budgets.Set(r.Context(), currentUser(r), core.BudgetInput{MonthlyBudget: req.MonthlyBudget})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBudgetView(budget)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.deps.Expenses.List(r.Context(), currentUser(r), params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newExpenseViews(expenses)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.deps.Expenses.Create(r.Context(), currentUser(r), core.ExpenseInput{
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newExpenseView(expense)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleAnalyzeExpenses answers 200 with an "error" key when the month has
// no expenses; clients depend on that status.
func (s *Server) handleAnalyzeExpenses(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Analysis.Analyze(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if report.NoExpenses {
		NewJSONResponse().Body(noExpensesView{Error: msgNoExpenses, Debug: []any{}}).Write(w)
		return
	}
	NewJSONResponse().Body(newAnalysisView(report)).Write(w)
}
